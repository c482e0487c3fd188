package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/groblegark/sentinel/internal/model"
)

// handleDashboardEvents handles GET /v1/dashboard/events: the cross-device
// aggregated view with correlation annotations.
func (s *Server) handleDashboardEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AggregateFilter{}

	if v := q.Get("devices"); v != "" {
		filter.DeviceIDs = strings.Split(v, ",")
	}
	if v := q.Get("locations"); v != "" {
		filter.Locations = strings.Split(v, ",")
	}
	if v := q.Get("classes"); v != "" {
		filter.Classes = strings.Split(v, ",")
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC 3339")
			return
		}
		filter.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC 3339")
			return
		}
		filter.End = &t
	}
	if v := q.Get("alert_level"); v != "" {
		level := model.AlertLevel(v)
		if level != model.AlertLow && level != model.AlertMedium && level != model.AlertHigh {
			writeError(w, http.StatusBadRequest, "invalid alert level")
			return
		}
		filter.AlertLevel = level
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	events := s.correlate.AggregatedEvents(filter)
	if events == nil {
		events = []*model.MultiDeviceEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// handleDashboardDevices handles GET /v1/dashboard/devices.
func (s *Server) handleDashboardDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.correlate.DeviceSummaries(),
	})
}

// handleDashboardLocations handles GET /v1/dashboard/locations.
func (s *Server) handleDashboardLocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": s.correlate.LocationSummaries(),
	})
}

// handleStorageStats handles GET /v1/storage/stats.
func (s *Server) handleStorageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.recorder.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute storage stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCleanup handles POST /v1/cleanup. Days defaults to the configured
// retention period when the body omits it.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Days *int `json:"days,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	days := 0
	if in.Days != nil {
		days = *in.Days
	} else {
		settings, err := s.recorder.GetSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get settings")
			return
		}
		days = settings.RetentionDays
	}
	if days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be positive")
		return
	}

	result, err := s.engine.Cleanup(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
