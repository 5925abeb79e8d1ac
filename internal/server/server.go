package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"headerDiffCodec/internal/config"
	"headerDiffCodec/internal/logging"
	"headerDiffCodec/internal/session"
)

// Server exposes codec sessions over HTTP. Each session is an encoder and
// its mirror decoder; batches posted to a session are round-tripped in
// arrival order.
type Server struct {
	Port   uint16
	Config *config.Config
	Store  *session.Store
	Logger logging.Logger

	router chi.Router
}

func NewServer(conf *config.Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	srv := &Server{
		Port:   uint16(conf.Server.Port),
		Config: conf,
		Store:  session.NewStore(conf.Server.MaxSessions, conf.Server.SessionTTL, logger),
		Logger: logger,
	}
	srv.router = srv.routes()
	return srv
}

func (srv *Server) Log(level logging.LogLevel, message string, args ...interface{}) {
	srv.Logger.Log(level, message, args...)
}

func (srv *Server) routes() chi.Router {
	srv.Log(logging.LogLevelDebug, "Setting up router")

	r := chi.NewRouter()
	r.NotFound(srv.notFoundHandler)
	r.MethodNotAllowed(srv.methodNotAllowedHandler)

	r.Post("/sessions", srv.createSession)
	r.Get("/sessions/{id}", srv.getSession)
	r.Delete("/sessions/{id}", srv.deleteSession)
	r.Post("/sessions/{id}/batches", srv.roundTripBatch)

	return r
}

func (srv *Server) Handler() http.Handler {
	return srv.router
}

func (srv *Server) Start() error {
	srv.Log(logging.LogLevelInfo, "Starting headerdiff server on port %d", srv.Port)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", srv.Port))
	if err != nil {
		srv.Log(logging.LogLevelError, "Failed to listen on port %d: %v", srv.Port, err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Store.Cleanup(ctx)

	httpServer := &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.Log(logging.LogLevelInfo, "Listening on http://%s", ln.Addr().String())
	err = httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
