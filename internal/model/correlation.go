package model

import "time"

// DeviceClass categorizes the reporting hardware. Well-known constants are
// provided below, but device classes are extensible; custom values are valid.
type DeviceClass string

const (
	DeviceIPCamera DeviceClass = "ip-camera"
	DeviceDoorbell DeviceClass = "doorbell"
	DeviceMobile   DeviceClass = "mobile"
	DeviceDesktop  DeviceClass = "desktop"
	DeviceSBC      DeviceClass = "sbc" // raspberry pi and similar
)

// SourceDevice identifies the device an event was ingested from.
type SourceDevice struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Class    DeviceClass `json:"class"`
	Location string      `json:"location"`
}

// ChainKind names the pattern that linked events into a chain.
type ChainKind string

const (
	ChainMotionSequence ChainKind = "motion-sequence"
	ChainPersonTracking ChainKind = "person-tracking"
	ChainAreaCoverage   ChainKind = "area-coverage"
)

// EventChain links an event to its temporal neighbors in a correlated
// sequence observed across devices.
type EventChain struct {
	PreviousEvent string    `json:"previous_event,omitempty"`
	NextEvent     string    `json:"next_event,omitempty"`
	Kind          ChainKind `json:"kind"`
}

// MultiDeviceEvent is an Event annotated with its source device and any
// correlation state. It exists only in the correlation engine's memory and is
// never persisted independently of the underlying Event.
type MultiDeviceEvent struct {
	Event
	SourceDevice  SourceDevice `json:"source_device"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	Chain         *EventChain  `json:"chain,omitempty"`
}

// AlertLevel grades recent activity for a device or location.
type AlertLevel string

const (
	AlertLow    AlertLevel = "low"
	AlertMedium AlertLevel = "medium"
	AlertHigh   AlertLevel = "high"
)

// DetectionCount is one entry of a top-detections rollup.
type DetectionCount struct {
	Class      string  `json:"class"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"` // mean score
}

// DeviceSummary is the per-device dashboard rollup.
type DeviceSummary struct {
	DeviceID      string           `json:"device_id"`
	DeviceName    string           `json:"device_name"`
	EventsToday   int              `json:"events_today"`
	LastEventTime time.Time        `json:"last_event_time"`
	AlertLevel    AlertLevel       `json:"alert_level"`
	TopDetections []DetectionCount `json:"top_detections"`
}

// LocationSummary is the per-location dashboard rollup.
type LocationSummary struct {
	Location         string     `json:"location"`
	Devices          int        `json:"devices"`
	EventsToday      int        `json:"events_today"`
	AlertLevel       AlertLevel `json:"alert_level"`
	LastActivity     time.Time  `json:"last_activity"`
	ActiveDetections int        `json:"active_detections"` // events in the last 5 minutes
}
