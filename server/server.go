// Package server exposes the Intcode machine over Connect (HTTP) and gRPC.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/intcode/history"
)

var log = commonlog.GetLogger("intcode.server")

// Server hosts the machine service. Connect handlers are served over
// HTTP; a gRPC server can be started on a separate listener.
type Server struct {
	service  *MachineService
	sessions *SessionStore
	mux      *http.ServeMux
	http     *http.Server
	grpc     *grpc.Server

	stopSweeper func()
	stopOnce    sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxConcurrent int
	maxSessions   int
	maxSteps      uint64
	sessionTTL    time.Duration
	store         *history.Store
}

// WithMaxConcurrent bounds how many Run requests execute at once.
func WithMaxConcurrent(n int) ServerOption {
	return func(c *serverConfig) { c.maxConcurrent = n }
}

// WithMaxSessions bounds the number of live interactive sessions.
func WithMaxSessions(n int) ServerOption {
	return func(c *serverConfig) { c.maxSessions = n }
}

// WithMaxSteps caps the instructions any one machine may execute.
func WithMaxSteps(n uint64) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.sessionTTL = d }
}

// WithHistory records every Run in store.
func WithHistory(store *history.Store) ServerOption {
	return func(c *serverConfig) { c.store = store }
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := &serverConfig{
		maxConcurrent: 8,
		maxSessions:   64,
		maxSteps:      10_000_000,
		sessionTTL:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sessions := NewSessionStore(cfg.maxSessions)
	service := NewMachineService(NewRunner(cfg.maxConcurrent, cfg.maxSteps, cfg.store), sessions)

	s := &Server{
		service:  service,
		sessions: sessions,
		mux:      http.NewServeMux(),
	}

	path, handler := NewMachineServiceHandler(service)
	s.mux.Handle(path, handler)
	s.http = &http.Server{Handler: s.mux}

	s.grpc = grpc.NewServer()
	RegisterMachineServer(s.grpc, service)

	sweep := cfg.sessionTTL / 6
	if sweep <= 0 {
		sweep = time.Minute
	}
	s.stopSweeper = sessions.StartSweeper(sweep, cfg.sessionTTL)

	return s
}

// Handler returns the HTTP handler serving the Connect endpoints.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Service returns the underlying service implementation.
func (s *Server) Service() *MachineService {
	return s.service
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve serves the Connect endpoints on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Noticef("intcode server listening on %s", lis.Addr())
	log.Noticef("  Connect (HTTP/CBOR): http://%s%s", lis.Addr(), RunProcedure)
	err := s.http.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves gRPC on lis until Stop is called.
func (s *Server) ServeGRPC(lis net.Listener) error {
	log.Noticef("  gRPC (CBOR codec):   grpc://%s", lis.Addr())
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop shuts down the server and aborts all sessions.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.stopSweeper()
		s.sessions.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			log.Warningf("http shutdown: %v", err)
		}
		s.grpc.GracefulStop()
	})
}

// muxHandler routes Connect procedures to their handlers.
type muxHandler struct {
	routes map[string]*connect.Handler
}

func (h *muxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := h.routes[r.URL.Path]; ok {
		handler.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}
