package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motleylight/LogParser/internal/config"
)

// HTTPServer provides HTTP API endpoints for monitoring the ingest
// service.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	config    *config.Config
	tcpServer *TCPServer
	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server.
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, tcpServer *TCPServer) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		tcpServer: tcpServer,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/stats", h.handleStats)
	mux.HandleFunc("/config", h.handleConfig)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Start begins serving the HTTP API.
func (h *HTTPServer) Start() error {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	h.logger.Info("HTTP API server started", slog.String("address", h.server.Addr))
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.tcpServer.Snapshot())
}

func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"server":  h.config.Server,
		"scanner": h.config.Scanner,
	})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
