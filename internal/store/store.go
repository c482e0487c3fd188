package store

import (
	"context"
	"errors"

	"github.com/groblegark/sentinel/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded is returned when the durable layer rejects a write because
// local storage is at capacity.
var ErrQuotaExceeded = errors.New("local storage quota exceeded")

// MediaKind names an event's media attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Store defines the persistence interface for events, the settings singleton,
// and the sync queue.
type Store interface {
	// Events
	SaveEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	MarkEventSynced(ctx context.Context, id string) error
	RecordSyncAttempt(ctx context.Context, id string) error
	DeleteEventsBefore(ctx context.Context, days int) (int, error) // synced events only

	// Settings singleton
	SaveSettings(ctx context.Context, settings *model.Settings) error
	GetSettings(ctx context.Context) (*model.Settings, error)

	// Sync queue
	EnqueueSyncItem(ctx context.Context, item *model.QueueItem) error
	ListSyncQueue(ctx context.Context, limit int) ([]*model.QueueItem, error)
	RemoveSyncQueueItem(ctx context.Context, id string) error

	// Stats
	Stats(ctx context.Context) (*model.StorageStats, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
