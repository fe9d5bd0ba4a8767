package server

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Run starts the server and blocks until a shutdown signal.
func (s *Server) Run() error {
	if s.history == nil {
		return fmt.Errorf("server: missing history store dependency")
	}
	defer func() { _ = s.history.Close() }()

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return err
	}

	// Start metrics HTTP endpoint (no-op when unconfigured)
	s.StartMetricsHTTP()

	// Start periodic metrics logging (every 60s)
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}
