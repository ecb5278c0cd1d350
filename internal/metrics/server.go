package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyFunc reports whether the monitor is ready; nil means always ready.
type ReadyFunc func() error

// Server provides HTTP endpoints for Prometheus metrics and health checks.
type Server struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewServer creates a metrics server for the given gatherer. A nil gatherer
// serves the default registry.
func NewServer(addr string, gatherer prometheus.Gatherer, ready ReadyFunc, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	if gatherer == nil {
		mux.Handle("/metrics", promhttp.Handler())
	} else {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Liveness
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/healthz", healthHandler)

	// Readiness
	readyHandler := readinessHandler(ready)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/readyz", readyHandler)

	return &Server{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func readinessHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if ready != nil {
			if err := ready(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintln(w, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}
}

// Start binds the listen address and serves in a goroutine.
// Returns once the address is bound. Use Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	s.logger.Info("metrics_server_starting", "addr", s.addr)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address. After Start it is the bound address.
func (s *Server) Addr() string {
	return s.addr
}
