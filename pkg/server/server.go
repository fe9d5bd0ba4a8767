// Package server implements the chat room server: the session registry, the
// message router, and the per-connection handlers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/filter"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
)

// Dependencies holds external collaborators for the server.
// Server assumes ownership of History and will Close() it on shutdown.
type Dependencies struct {
	History store.HistoryStore
	Filter  *filter.Filter
}

// Server accepts client connections and spawns one handler per connection.
// All shared state lives in the registry; handlers communicate only through
// the router.
type Server struct {
	cfg      Config
	registry *Registry
	router   *Router
	metrics  *Metrics
	history  store.HistoryStore
	ln       net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	reg := NewRegistry()
	metrics := NewMetrics()
	return &Server{
		cfg:      cfg,
		registry: reg,
		router:   NewRouter(reg, deps.Filter, deps.History, metrics),
		metrics:  metrics,
		history:  deps.History,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Router returns the message router.
func (s *Server) Router() *Router {
	return s.router
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listen address, useful when the configured port is
// 0 in tests. Returns empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start binds the listener and starts the accept loop in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.ln = ln
	slog.Info("chat server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// acceptLoop accepts connections until the listener closes. Each accepted
// connection gets its own handler goroutine.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			slog.Error("accept error", "err", err)
			return
		}

		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.handleConn(conn)
		}(conn)
	}
}

// Shutdown stops accepting, notifies and closes every live session, and
// waits for the handlers to finish.
func (s *Server) Shutdown() {
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.registry.CloseAll(NoticeShutdown)
	s.wg.Wait()
}
