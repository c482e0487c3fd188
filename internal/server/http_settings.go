package server

import (
	"encoding/json"
	"net/http"

	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/remote"
)

// handleGetSettings handles GET /v1/settings. Always succeeds; defaults are
// returned before the first save.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.recorder.GetSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings handles PUT /v1/settings. The full settings document is
// replaced; the recorder stamps modification time and sync state.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in model.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.RetentionDays < 0 {
		writeError(w, http.StatusBadRequest, "retention_days must not be negative")
		return
	}
	if in.MaxLocalStorageMB < 0 {
		writeError(w, http.StatusBadRequest, "max_local_storage_mb must not be negative")
		return
	}
	if in.AlertThreshold < 0 || in.AlertThreshold > 1 {
		writeError(w, http.StatusBadRequest, "alert_threshold must be between 0 and 1")
		return
	}

	saved, err := s.recorder.SaveSettings(r.Context(), &in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	// Settings carrying remote credentials reconfigure the sync engine in
	// place. The save itself succeeds regardless.
	if saved.Remote.Configured() {
		rc, err := remote.FromCredentials(r.Context(), saved.Remote, s.logger)
		if err != nil {
			s.logger.Error("failed to configure remote from settings", "error", err)
		} else {
			s.engine.Configure(rc)
			s.logger.Info("remote configured from settings", "bucket", saved.Remote.Bucket)
		}
	}

	writeJSON(w, http.StatusOK, saved)
}
