package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dreamware/matrixd/internal/config"
	"github.com/dreamware/matrixd/internal/matrix"
	"github.com/dreamware/matrixd/internal/partition"
	"github.com/dreamware/matrixd/internal/protocol"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown.
var ErrServerClosed = errors.New("server: closed")

// Exchange describes one computed request. It is passed to the Observer
// after the workers have joined, whether or not the computation succeeded.
type Exchange struct {
	A, B, C  *matrix.Matrix
	ID       string
	Request  protocol.Request
	Code     protocol.Code
	Duration time.Duration
}

// Observer receives every computed Exchange. It runs on the handler's
// goroutine before the response is written and must not modify the
// matrices.
type Observer func(Exchange)

// Option configures a Server.
type Option func(*Server)

// WithGenerator replaces the seeded random generator built from the
// configuration.
func WithGenerator(g matrix.Generator) Option {
	return func(s *Server) { s.gen = g }
}

// WithObserver installs fn as the exchange observer.
func WithObserver(fn Observer) Option {
	return func(s *Server) { s.observer = fn }
}

// Server accepts matrix product requests over TCP.
//
// A Server is built once from a validated Config. The worker count, and with
// it the Block grid, is fixed for the lifetime of the Server.
type Server struct {
	gen      matrix.Generator
	observer Observer
	planner  *partition.Planner
	limiter  *semaphore.Weighted
	stats    *Stats
	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener
	cfg      config.Config
	handlers sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

// New validates cfg and builds a Server ready to Serve.
//
// The server starts with:
//   - A Planner for cfg.Workers, its Block grid computed once
//   - A connection limiter when cfg.MaxConns > 0
//   - A RandomGenerator seeded with cfg.Seed, unless WithGenerator is given
//
// Parameters:
//   - cfg: Server settings, checked with cfg.Validate
//   - opts: Optional generator and observer overrides
//
// Returns:
//   - The Server, or an error wrapping config.ErrInvalid
//
// Example:
//
//	srv, err := server.New(cfg, server.WithObserver(func(ex server.Exchange) {
//		log.Printf("%s took %v", ex.ID, ex.Duration)
//	}))
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	planner, err := partition.NewPlanner(cfg.Workers)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		planner: planner,
		stats:   newStats(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if cfg.MaxConns > 0 {
		s.limiter = semaphore.NewWeighted(int64(cfg.MaxConns))
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen == nil {
		s.gen = matrix.NewRandomGenerator(cfg.Seed)
	}
	return s, nil
}

// Config returns the configuration the Server was built with.
func (s *Server) Config() config.Config { return s.cfg }

// Planner returns the Server's work planner.
func (s *Server) Planner() *partition.Planner { return s.planner }

// Stats returns a point-in-time copy of the service counters.
func (s *Server) Stats() Snapshot { return s.stats.snapshot(s.planner) }

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds the configured address and calls Serve.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(l)
}

// Serve runs the accept loop on l until l is closed or Shutdown is called.
// Each accepted connection is handled on its own goroutine. When the
// connection limit is reached, Serve stops accepting until a handler
// finishes.
//
// Returns:
//   - ErrServerClosed after Shutdown
//   - nil when l was closed by someone else
//   - The accept error otherwise
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	grid := s.planner.Grid()
	log.Printf("server listening on %s (workers=%d grid=%dx%d max_size=%d)",
		l.Addr(), s.planner.Workers(), grid.Rows, grid.Cols, s.cfg.SizeLimit())

	for {
		if s.limiter != nil {
			if err := s.limiter.Acquire(s.ctx, 1); err != nil {
				return ErrServerClosed
			}
		}

		conn, err := l.Accept()
		if err != nil {
			s.release()
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			s.release()
			return ErrServerClosed
		}
		s.handlers.Add(1)
		s.mu.Unlock()

		h := newHandler(s, conn, uuid.NewString())
		go func() {
			defer s.handlers.Done()
			defer s.release()
			h.serve()
		}()
	}
}

// Shutdown closes the listener and waits for in-flight handlers to finish
// or for ctx to expire, whichever comes first.
//
// Behavior:
//   - Serve returns ErrServerClosed
//   - /health on the admin endpoint reports 503
//   - Running handlers are not interrupted
//
// Returns:
//   - ctx.Err() if handlers were still running when ctx expired
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	l := s.listener
	s.mu.Unlock()

	s.cancel()
	if l != nil {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("server close listener: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Printf("server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) release() {
	if s.limiter != nil {
		s.limiter.Release(1)
	}
}
