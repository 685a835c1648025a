// Package server provides the HTTP server for wandcast.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/wandcast/internal/server/api"
	"github.com/ayusman/wandcast/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Status    api.StatusProvider
	Exporter  api.Exporter
	Voice     api.UtteranceSubmitter
	Events    *EventHub
}

// Server represents the HTTP server for the wandcast application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		templateHandler := api.NewTemplateHandler(s.config.Store, s.config.Exporter)
		s.mux.Handle("/api/templates", templateHandler)
		s.mux.Handle("/api/templates/", templateHandler)

		castHandler := api.NewCastHandler(s.config.Store)
		s.mux.Handle("/api/casts", castHandler)
		s.mux.Handle("/api/casts/", castHandler)
	}

	if s.config.Status != nil {
		s.mux.Handle("/api/status", api.NewStatusHandler(s.config.Status))
	}

	if s.config.Voice != nil {
		s.mux.Handle("/api/voice", api.NewVoiceHandler(s.config.Voice))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer returns an http.Server bound to addr that can be shut down.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
