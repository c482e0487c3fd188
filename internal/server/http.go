package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", s.handleCreateEvent)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handlePutSettings)
	mux.HandleFunc("POST /v1/sync/now", s.handleSyncNow)
	mux.HandleFunc("GET /v1/sync/status", s.handleSyncStatus)
	mux.HandleFunc("POST /v1/sync/download", s.handleSyncDownload)
	mux.HandleFunc("PUT /v1/sync/online", s.handleSetOnline)
	mux.HandleFunc("GET /v1/sync/check", s.handleSyncCheck)
	mux.HandleFunc("GET /v1/dashboard/events", s.handleDashboardEvents)
	mux.HandleFunc("GET /v1/dashboard/devices", s.handleDashboardDevices)
	mux.HandleFunc("GET /v1/dashboard/locations", s.handleDashboardLocations)
	mux.HandleFunc("GET /v1/storage/stats", s.handleStorageStats)
	mux.HandleFunc("POST /v1/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
