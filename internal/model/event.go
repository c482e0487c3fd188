package model

import (
	"time"
)

// Kind classifies how an event was produced.
type Kind string

const (
	KindDetection Kind = "detection"
	KindMotion    Kind = "motion"
	KindAlert     Kind = "alert"
	KindManual    Kind = "manual"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindDetection, KindMotion, KindAlert, KindManual:
		return true
	}
	return false
}

// ClassPerson is the detector class name used for person detections.
const ClassPerson = "person"

// Detection is a single object detected in a captured frame.
// BBox is [x, y, width, height] normalized to the frame dimensions.
type Detection struct {
	BBox  [4]float64 `json:"bbox"`
	Class string     `json:"class"`
	Score float64    `json:"score"`
}

// Event is the core captured-occurrence record: a detection, motion trigger,
// alert, or manual capture, with optional media payloads.
type Event struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Kind       Kind        `json:"kind"`
	Detections []Detection `json:"detections,omitempty"`
	Confidence float64     `json:"confidence"`

	DeviceID string  `json:"device_id"`
	CameraID string  `json:"camera_id"`
	Location string  `json:"location,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds

	Synced          bool       `json:"synced"`
	SyncAttempts    int        `json:"sync_attempts"`
	LastSyncAttempt *time.Time `json:"last_sync_attempt,omitempty"`

	// Media payloads are stored in a separate table and uploaded as separate
	// remote objects; they are never part of the event's JSON encoding.
	Image []byte `json:"-"`
	Video []byte `json:"-"`
}

// HasDetection reports whether any detection matches the given class.
func (e *Event) HasDetection(class string) bool {
	for _, d := range e.Detections {
		if d.Class == class {
			return true
		}
	}
	return false
}

// SyncPriority derives the sync queue priority for the event.
// Higher number = more urgent.
func (e *Event) SyncPriority() int {
	switch e.Kind {
	case KindAlert:
		return 5
	case KindDetection:
		if e.HasDetection(ClassPerson) {
			return 4
		}
		return 3
	case KindMotion:
		return 2
	default:
		return 1
	}
}
