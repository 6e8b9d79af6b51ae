package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wolrelay/internal/analysis"
	"wolrelay/internal/logger"
)

const maxAlerts = 100

// Server serves /metrics over HTTP.
type Server struct {
	logger   *slog.Logger
	addr     string
	registry *prometheus.Registry
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates an exporter for the given layers' statistics.
func NewServer(addr string, stats ...*analysis.RelayStats) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(stats...))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		logger:   logger.Component(logger.ComponentMetrics),
		addr:     addr,
		registry: registry,
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("Prometheus HTTP server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Prometheus HTTP server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	s.logger.Info("Stopping Prometheus exporter")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("Prometheus HTTP server shutdown", "error", err)
	}
	s.wg.Wait()
}
