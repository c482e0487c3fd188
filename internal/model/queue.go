package model

import (
	"encoding/json"
	"time"
)

// ItemKind discriminates what a sync queue item carries.
type ItemKind string

const (
	ItemEvent    ItemKind = "event"
	ItemSettings ItemKind = "settings"
	ItemBlob     ItemKind = "blob"
)

// String returns the string representation of the item kind.
func (k ItemKind) String() string {
	return string(k)
}

// IsValid checks whether the item kind is a known value.
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemEvent, ItemSettings, ItemBlob:
		return true
	}
	return false
}

// QueueItem is a pending unit of remote work. Items are ephemeral: created
// when an event or settings change needs remote propagation, deleted on
// success or after exhausting retries.
type QueueItem struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"` // SettingsID for settings items
	Kind        ItemKind        `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"` // snapshot taken at enqueue time
	Priority    int             `json:"priority"`          // higher = more urgent
	Attempts    int             `json:"attempts"`
	LastAttempt *time.Time      `json:"last_attempt,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
