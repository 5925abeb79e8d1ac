package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"headerDiffCodec/internal/headerdiff"
	"headerDiffCodec/internal/logging"
	"headerDiffCodec/internal/stats"
)

var (
	ErrInvalidHeaders    = errors.New("invalid headers")
	ErrSessionBroken     = errors.New("session state discarded after a failed round trip")
	ErrRoundTripMismatch = errors.New("decoded headers differ from the encoded ones")
	ErrTablesOutOfSync   = errors.New("encoder and decoder header tables differ")
)

// Session pairs an encoder with the decoder that mirrors it, the way two
// peers of a connection would. Calls are serialized.
type Session struct {
	ID      uuid.UUID
	Config  headerdiff.Config
	Created time.Time

	mu       sync.Mutex
	lastUsed time.Time
	enc      *headerdiff.Encoder
	dec      *headerdiff.Decoder
	baseline *stats.Baseline
	totals   stats.Batch
	batches  int
	err      error
	logger   logging.Logger
}

type Result struct {
	Batch           int
	Stream          []byte
	Headers         []headerdiff.HeaderField
	Representations []headerdiff.Representation
	Stats           stats.Batch
}

type Snapshot struct {
	ID           uuid.UUID
	Context      headerdiff.Context
	MaxTableSize int
	Batches      int
	Totals       stats.Batch
	TableSize    int
	Entries      []headerdiff.TableEntry
	Broken       bool
}

func New(cfg headerdiff.Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	enc := headerdiff.NewEncoder(cfg)
	now := time.Now()
	return &Session{
		ID:       uuid.New(),
		Config:   cfg,
		Created:  now,
		lastUsed: now,
		enc:      enc,
		dec:      headerdiff.NewDecoder(cfg),
		baseline: stats.NewBaseline(enc.MaxTableSize),
		logger:   logger,
	}
}

// RoundTrip encodes one batch, decodes it with the mirror decoder and checks
// both the headers and the two header tables. Any failure breaks the
// session for good.
func (s *Session) RoundTrip(headers []headerdiff.HeaderField) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = time.Now()
	if s.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionBroken, s.err)
	}
	if err := headerdiff.ValidateHeaders(headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeaders, err)
	}

	batch := s.batches
	stream, reps := s.enc.Encode(headers)

	decoded, err := s.dec.DecodeBytes(stream)
	if err != nil {
		return nil, s.fail(fmt.Errorf("decode batch %d: %w", batch, err))
	}
	if !slices.Equal(decoded, headers) {
		return nil, s.fail(fmt.Errorf("batch %d: %w", batch, ErrRoundTripMismatch))
	}
	if !slices.Equal(s.enc.Table.Entries(), s.dec.Table.Entries()) {
		return nil, s.fail(fmt.Errorf("batch %d: %w", batch, ErrTablesOutOfSync))
	}

	result := &Result{
		Batch:           batch,
		Stream:          stream,
		Headers:         decoded,
		Representations: reps,
		Stats: stats.Batch{
			Headers:      len(headers),
			OriginalSize: stats.TextSize(headers),
			EncodedSize:  len(stream),
			HPACKSize:    len(s.baseline.Encode(headers)),
		},
	}
	s.totals.Add(result.Stats)
	s.batches++

	s.logger.Log(logging.LogLevelDebug, "session %s batch %d: %d headers, %d -> %d bytes (hpack %d)",
		s.ID, batch, result.Stats.Headers, result.Stats.OriginalSize, result.Stats.EncodedSize, result.Stats.HPACKSize)
	return result, nil
}

func (s *Session) fail(err error) error {
	s.err = err
	s.logger.Log(logging.LogLevelError, "session %s broken: %v", s.ID, err)
	return err
}

// LastUsed is the time of the last RoundTrip call, or the creation time.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Err reports the failure that broke the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.ID,
		Context:      s.enc.Context,
		MaxTableSize: s.enc.MaxTableSize,
		Batches:      s.batches,
		Totals:       s.totals,
		TableSize:    s.enc.Table.Size(),
		Entries:      s.enc.Table.Entries(),
		Broken:       s.err != nil,
	}
}
