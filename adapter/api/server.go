// Package api provides the HTTP API for the rescheduling service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server is the HTTP API server.
type Server struct {
	mux       *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
	requests  *ReschedulingHandler
	responses *ResponseHandler
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, requests *ReschedulingHandler, responses *ResponseHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    logger,
		requests:  requests,
		responses: responses,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	// Health check
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Reschedule intake: voice-agent webhooks and the manual operator API.
	s.mux.HandleFunc("POST /api/v1/webhooks/reschedule", s.requests.HandleWebhook)
	s.mux.HandleFunc("POST /api/v1/requests", s.requests.CreateRequest)
	s.mux.HandleFunc("GET /api/v1/requests/{requestID}", s.requests.GetRequest)
	s.mux.HandleFunc("POST /api/v1/requests/{requestID}/process", s.requests.ProcessRequest)
	s.mux.HandleFunc("POST /api/v1/requests/{requestID}/confirm", s.requests.ConfirmRequest)
	s.mux.HandleFunc("POST /api/v1/requests/{requestID}/cancel", s.requests.CancelRequest)

	// Call outcomes feed the responsiveness counters.
	s.mux.HandleFunc("POST /api/v1/calls", s.requests.RecordCall)

	// Customer responses arrive tokenized, without authentication.
	s.mux.HandleFunc("POST /api/v1/respond", s.responses.Respond)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting rescheduling API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down rescheduling API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// APIError represents an API error.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
