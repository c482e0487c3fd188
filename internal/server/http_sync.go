package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groblegark/sentinel/internal/syncq"
)

// handleSyncNow handles POST /v1/sync/now. If a pass is already running the
// current status is returned without starting another.
func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	status := s.engine.SyncNow(r.Context())
	writeJSON(w, http.StatusOK, status)
}

// handleSyncStatus handles GET /v1/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": s.engine.Configured(),
		"status":     s.engine.Status(),
	})
}

// handleSyncDownload handles POST /v1/sync/download: pulls remote events and
// settings written by other devices.
func (s *Server) handleSyncDownload(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Download(r.Context())
	if err != nil {
		if errors.Is(err, syncq.ErrNotConfigured) {
			writeError(w, http.StatusConflict, "cloud sync is not configured")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSetOnline handles PUT /v1/sync/online, the connectivity signal from
// whatever watches the network.
func (s *Server) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.engine.SetOnline(in.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": s.engine.Online()})
}

// handleSyncCheck handles GET /v1/sync/check: a live probe of the remote.
func (s *Server) handleSyncCheck(w http.ResponseWriter, r *http.Request) {
	ok, detail := s.engine.TestConnection(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{
		"ok":     ok,
		"detail": detail,
	})
}
