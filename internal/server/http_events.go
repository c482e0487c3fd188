package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/recorder"
	"github.com/groblegark/sentinel/internal/store"
)

type createEventInput struct {
	Timestamp    *time.Time          `json:"timestamp,omitempty"`
	Kind         string              `json:"kind"`
	Detections   []model.Detection   `json:"detections,omitempty"`
	Confidence   float64             `json:"confidence,omitempty"`
	DeviceID     string              `json:"device_id,omitempty"`
	CameraID     string              `json:"camera_id,omitempty"`
	Location     string              `json:"location,omitempty"`
	Duration     float64             `json:"duration,omitempty"`
	Image        []byte              `json:"image,omitempty"` // base64 in JSON
	Video        []byte              `json:"video,omitempty"`
	SourceDevice *model.SourceDevice `json:"source_device,omitempty"`
}

// handleCreateEvent handles POST /v1/events: persists the event, then feeds
// it to the correlation engine.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in createEventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !model.Kind(in.Kind).IsValid() {
		writeError(w, http.StatusBadRequest, "invalid event kind")
		return
	}

	draft := recorder.Draft{
		Kind:       model.Kind(in.Kind),
		Detections: in.Detections,
		Confidence: in.Confidence,
		DeviceID:   in.DeviceID,
		CameraID:   in.CameraID,
		Location:   in.Location,
		Duration:   in.Duration,
		Image:      in.Image,
		Video:      in.Video,
	}
	if in.Timestamp != nil {
		draft.Timestamp = *in.Timestamp
	}
	if draft.DeviceID == "" {
		draft.DeviceID = s.device.ID
	}

	event, err := s.recorder.SaveEvent(r.Context(), draft)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			writeError(w, http.StatusInsufficientStorage, "local storage quota exceeded")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save event")
		return
	}

	mde := s.correlate.Ingest(r.Context(), event, s.sourceDevice(in))

	writeJSON(w, http.StatusCreated, mde)
}

// sourceDevice resolves the device identity for an ingested event, falling
// back to the server's own identity field by field.
func (s *Server) sourceDevice(in createEventInput) model.SourceDevice {
	device := s.device
	if in.SourceDevice != nil {
		device = *in.SourceDevice
	}
	if device.ID == "" {
		device.ID = s.device.ID
	}
	if in.DeviceID != "" && in.SourceDevice == nil {
		device.ID = in.DeviceID
	}
	if device.Name == "" {
		device.Name = device.ID
	}
	if device.Location == "" {
		device.Location = in.Location
	}
	return device
}

// handleListEvents handles GET /v1/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EventFilter{}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = &t
	}
	if v := q.Get("kind"); v != "" {
		if !model.Kind(v).IsValid() {
			writeError(w, http.StatusBadRequest, "invalid event kind")
			return
		}
		filter.Kind = model.Kind(v)
	}
	if v := q.Get("unsynced"); v != "" {
		filter.OnlyUnsynced = v == "true" || v == "1"
	}

	events, err := s.recorder.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Ensure events is never null in JSON output.
	if events == nil {
		events = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	event, err := s.recorder.GetEvent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	// Include correlation state when the engine still has it.
	if mde, ok := s.correlate.Event(id); ok {
		writeJSON(w, http.StatusOK, mde)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
