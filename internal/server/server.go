// Package server provides the read-only observation surface of the
// simulator: Prometheus metrics, a health probe and the live event stream
// over WebSocket. It never mutates simulation state.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/virtustack/virtustack/internal/config"
	"github.com/virtustack/virtustack/internal/services/streaming"
)

// Server is the observation HTTP server.
type Server struct {
	config     config.ServerConfig
	logger     *zap.Logger
	broker     *streaming.Broker
	httpServer *http.Server
}

// New creates the observation server.
func New(cfg *config.Config, broker *streaming.Broker, registry *prometheus.Registry, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg.Server,
		logger: logger.Named("server"),
		broker: broker,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/events", s.handleEvents)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
	})

	s.httpServer = &http.Server{
		Addr:        cfg.Server.Address(),
		Handler:     corsHandler.Handler(mux),
		ReadTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Observation server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
