package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"headerDiffCodec/internal/headerdiff"
	"headerDiffCodec/internal/logging"
)

var ErrTooManySessions = errors.New("session limit reached")

type Store struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	maxSessions int
	ttl         time.Duration
	logger      logging.Logger
}

// NewStore holds at most maxSessions sessions (0 means no limit). Sessions
// idle for longer than ttl are dropped by Expire; a zero ttl keeps them
// until deleted.
func NewStore(maxSessions int, ttl time.Duration, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{
		sessions:    make(map[uuid.UUID]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		logger:      logger,
	}
}

func (st *Store) Create(cfg headerdiff.Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = st.logger
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		return nil, ErrTooManySessions
	}
	s := New(cfg)
	st.sessions[s.ID] = s
	st.logger.Log(logging.LogLevelInfo, "created %s session %s (table size %d)", cfg.Context, s.ID, s.enc.MaxTableSize)
	return s, nil
}

func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	st.logger.Log(logging.LogLevelInfo, "deleted session %s", id)
	return true
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expire drops every session idle since before now-ttl and returns how many
// were dropped.
func (st *Store) Expire(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	expired := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastUsed()) > st.ttl {
			delete(st.sessions, id)
			expired++
			st.logger.Log(logging.LogLevelDebug, "session %s expired", id)
		}
	}
	if expired > 0 {
		st.logger.Log(logging.LogLevelInfo, "expired %d idle sessions", expired)
	}
	return expired
}

// Cleanup runs Expire every ttl/2 until ctx is done.
func (st *Store) Cleanup(ctx context.Context) {
	if st.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(st.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Expire(now)
		}
	}
}
