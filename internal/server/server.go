// Package server provides the HTTP server for the pose comparison service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yujeong-lee-1996/temp-kpop/internal/app"
	"github.com/yujeong-lee-1996/temp-kpop/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
}

// Server represents the HTTP server for the comparison service.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	events *EventsHandler
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

	if s.config.App != nil {
		comparisons := api.NewComparisonHandler(s.config.App)
		s.mux.Handle("/api/comparisons", comparisons)
		s.mux.Handle("/api/comparisons/", comparisons)

		s.events = NewEventsHandler(s.config.App)
		s.mux.Handle("/api/events", s.events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Events returns the websocket events hub, or nil without an App.
func (s *Server) Events() *EventsHandler {
	return s.events
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

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status":      "ok",
		"uptime":      uptime.String(),
		"comparisons": s.config.App != nil,
		"persistence": s.config.App != nil && s.config.App.Store() != nil,
	}
	if s.events != nil {
		response["event_clients"] = s.events.Clients()
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
