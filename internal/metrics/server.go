package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesradar/internal/config"
)

// StatsSource supplies the aggregate snapshot served at /stats.
type StatsSource interface {
	Stats() any
}

// Server exposes /metrics, /healthz and /stats.
type Server struct {
	server *http.Server
}

func NewServer(cfg config.ServerConfig, gatherer prometheus.Gatherer, stats StatsSource) *Server {
	addr := cfg.ListenAddress
	if addr == "" {
		addr = ":9105"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats.Stats())
	})
	return &Server{server: &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}}
}

func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
