package events

import (
	"context"

	"github.com/groblegark/sentinel/internal/model"
)

// Event topic constants
const (
	TopicEventCaptured   = "sentinel.event.captured"
	TopicEventSynced     = "sentinel.event.synced"
	TopicEventSyncFailed = "sentinel.event.sync_failed"
	TopicSettingsUpdated = "sentinel.settings.updated"
	TopicSyncCompleted   = "sentinel.sync.completed"
	TopicCleanupDone     = "sentinel.cleanup.done"

	// Correlation events
	TopicSequenceDetected = "sentinel.correlation.sequence"
)

// Event types

type EventCaptured struct {
	Event *model.Event `json:"event"`
}

type EventSynced struct {
	EventID string `json:"event_id"`
}

// EventSyncFailed is emitted when a queue item exhausts its retry budget.
type EventSyncFailed struct {
	EventID  string `json:"event_id"`
	Kind     string `json:"kind"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

type SettingsUpdated struct {
	Settings *model.Settings `json:"settings"`
}

type SyncCompleted struct {
	Synced  int      `json:"synced"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
	Elapsed string   `json:"elapsed"`
}

type CleanupDone struct {
	LocalDeleted  int `json:"local_deleted"`
	RemoteDeleted int `json:"remote_deleted"`
}

type SequenceDetected struct {
	CorrelationID string   `json:"correlation_id"`
	Kind          string   `json:"kind"`
	EventIDs      []string `json:"event_ids"`
	Devices       []string `json:"devices"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
