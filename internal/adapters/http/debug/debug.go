// Package debug exposes the operational HTTP surface: Prometheus
// metrics, a health probe, and live process stats. It carries no trial
// data and is disabled unless an address is configured.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/marklab/pkg/logger"
	"github.com/okian/marklab/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// StatsProvider defines the interface for getting process statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires the debug routes onto its own listener.
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

// NewServer builds a debug server on addr. statsProvider may be nil,
// in which case /statz returns an empty object.
func NewServer(addr string, statsProvider StatsProvider) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/statz", handleStats(statsProvider))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// handleHealth handles GET /healthz requests.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleStats handles GET /statz requests.
func handleStats(statsProvider StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		stats := map[string]interface{}{}
		if statsProvider != nil {
			stats = statsProvider.GetStats()
		}
		_ = json.NewEncoder(w).Encode(stats)
	}
}

// Start serves in a background goroutine until Shutdown or a listener
// failure, which is logged rather than fatal.
func (s *Server) Start(ctx context.Context) {
	if s.logger == nil {
		s.logger = logger.Get().Named("debug")
	}
	s.logger.Info(ctx, "debug server listening", logger.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "debug server failed", logger.Error(err))
		}
	}()
}

// Shutdown stops the listener, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
