// Package recorder implements the local-first event store: durable persistence
// of captured events and settings, with sync-queue enqueueing as a side effect
// when cloud sync is enabled.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/idgen"
	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/store"
)

// settingsQueueID is the fixed queue item id for settings propagation so that
// repeated settings saves collapse into a single pending item.
const settingsQueueID = idgen.QueuePrefix + "settings"

// eventQueueID derives the deterministic queue item id for an event, so a
// resync sweep re-enqueueing the same event overwrites rather than duplicates.
func eventQueueID(eventID string) string {
	return idgen.QueuePrefix + eventID
}

// Draft carries the producer-supplied fields of a new event. The recorder
// assigns identity and sync state.
type Draft struct {
	Timestamp  time.Time
	Kind       model.Kind
	Detections []model.Detection
	Confidence float64
	DeviceID   string
	CameraID   string
	Location   string
	Duration   float64
	Image      []byte
	Video      []byte
}

// Recorder is the single writer for events and settings. All mutations go
// through it so the sync-enqueue side effect is never bypassed.
type Recorder struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger
}

// New returns a Recorder backed by the given store and publisher.
func New(s store.Store, p events.Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{store: s, publisher: p, logger: logger}
}

// SaveEvent persists a new event (with media, atomically) and, when cloud sync
// is enabled, enqueues a sync item. The event row and the queue item are two
// separate writes; a crash between them is recovered by the resync sweep.
func (r *Recorder) SaveEvent(ctx context.Context, draft Draft) (*model.Event, error) {
	if !draft.Kind.IsValid() {
		return nil, fmt.Errorf("invalid event kind %q", draft.Kind)
	}

	id, err := idgen.Event()
	if err != nil {
		return nil, err
	}

	ts := draft.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	event := &model.Event{
		ID:         id,
		Timestamp:  ts,
		Kind:       draft.Kind,
		Detections: draft.Detections,
		Confidence: draft.Confidence,
		DeviceID:   draft.DeviceID,
		CameraID:   draft.CameraID,
		Location:   draft.Location,
		Duration:   draft.Duration,
		Synced:     false,
		Image:      draft.Image,
		Video:      draft.Video,
	}

	err = r.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.SaveEvent(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("save event: %w", err)
	}

	settings, err := r.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.CloudSync {
		if err := r.enqueueEvent(ctx, event); err != nil {
			return nil, err
		}
	}

	if err := r.publisher.Publish(ctx, events.TopicEventCaptured, events.EventCaptured{Event: event}); err != nil {
		r.logger.Warn("failed to publish event", "topic", events.TopicEventCaptured, "event_id", event.ID, "error", err)
	}

	r.logger.Info("event saved", "event_id", event.ID, "kind", event.Kind, "device", event.DeviceID)
	return event, nil
}

// ImportEvent persists an event reconstructed from the remote store under a
// fresh local id, already marked synced, bypassing the sync queue.
func (r *Recorder) ImportEvent(ctx context.Context, remote *model.Event) (*model.Event, error) {
	id, err := idgen.Event()
	if err != nil {
		return nil, err
	}

	event := *remote
	event.ID = id
	event.Synced = true
	event.SyncAttempts = 0
	event.LastSyncAttempt = nil

	err = r.store.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.SaveEvent(ctx, &event)
	})
	if err != nil {
		return nil, fmt.Errorf("import event: %w", err)
	}
	return &event, nil
}

// enqueueEvent snapshots the event metadata and upserts its queue item.
func (r *Recorder) enqueueEvent(ctx context.Context, event *model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("snapshot event: %w", err)
	}
	item := &model.QueueItem{
		ID:        eventQueueID(event.ID),
		EventID:   event.ID,
		Kind:      model.ItemEvent,
		Payload:   payload,
		Priority:  event.SyncPriority(),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.EnqueueSyncItem(ctx, item); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

// GetEvent loads a single event including media payloads.
func (r *Recorder) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return r.store.GetEvent(ctx, id)
}

// ListEvents returns events newest-first, narrowed by the filter.
func (r *Recorder) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	return r.store.ListEvents(ctx, filter)
}

// MarkEventSynced flips the event's synced flag. Idempotent.
func (r *Recorder) MarkEventSynced(ctx context.Context, id string) error {
	return r.store.MarkEventSynced(ctx, id)
}

// RecordSyncAttempt bumps the event's attempt counter and timestamp.
func (r *Recorder) RecordSyncAttempt(ctx context.Context, id string) error {
	return r.store.RecordSyncAttempt(ctx, id)
}

// SaveSettings stamps LastModified, persists the singleton, and enqueues a
// high-priority settings sync item when cloud sync is enabled.
func (r *Recorder) SaveSettings(ctx context.Context, settings *model.Settings) (*model.Settings, error) {
	s := *settings
	s.LastModified = time.Now().UTC()
	s.Synced = false

	if err := r.store.SaveSettings(ctx, &s); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	if s.CloudSync {
		payload, err := json.Marshal(&s)
		if err != nil {
			return nil, fmt.Errorf("snapshot settings: %w", err)
		}
		item := &model.QueueItem{
			ID:        settingsQueueID,
			EventID:   model.SettingsID,
			Kind:      model.ItemSettings,
			Payload:   payload,
			Priority:  5,
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.EnqueueSyncItem(ctx, item); err != nil {
			return nil, fmt.Errorf("enqueue settings: %w", err)
		}
	}

	if err := r.publisher.Publish(ctx, events.TopicSettingsUpdated, events.SettingsUpdated{Settings: &s}); err != nil {
		r.logger.Warn("failed to publish event", "topic", events.TopicSettingsUpdated, "error", err)
	}

	r.logger.Info("settings saved", "cloud_sync", s.CloudSync)
	return &s, nil
}

// GetSettings returns the settings singleton, or defaults when none has been
// saved yet.
func (r *Recorder) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings, err := r.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// EnqueueSyncItem upserts a queue item.
func (r *Recorder) EnqueueSyncItem(ctx context.Context, item *model.QueueItem) error {
	return r.store.EnqueueSyncItem(ctx, item)
}

// GetSyncQueue returns pending items highest-priority-first.
func (r *Recorder) GetSyncQueue(ctx context.Context, limit int) ([]*model.QueueItem, error) {
	return r.store.ListSyncQueue(ctx, limit)
}

// RemoveSyncQueueItem deletes a queue item. Idempotent.
func (r *Recorder) RemoveSyncQueueItem(ctx context.Context, id string) error {
	return r.store.RemoveSyncQueueItem(ctx, id)
}

// CleanupOldEvents deletes synced events older than the cutoff. Unsynced
// events survive regardless of age.
func (r *Recorder) CleanupOldEvents(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}
	n, err := r.store.DeleteEventsBefore(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("cleanup events: %w", err)
	}
	if n > 0 {
		r.logger.Info("cleaned up old events", "deleted", n, "retention_days", days)
	}
	return n, nil
}

// Stats summarizes local storage usage.
func (r *Recorder) Stats(ctx context.Context) (*model.StorageStats, error) {
	return r.store.Stats(ctx)
}

// ResyncUnsynced re-enqueues unsynced events that have no pending queue item.
// It is the recovery path for a crash between the event write and its enqueue.
func (r *Recorder) ResyncUnsynced(ctx context.Context) (int, error) {
	settings, err := r.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	if !settings.CloudSync {
		return 0, nil
	}

	pending, err := r.store.ListSyncQueue(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("list sync queue: %w", err)
	}
	queued := make(map[string]struct{}, len(pending))
	for _, item := range pending {
		queued[item.EventID] = struct{}{}
	}

	unsynced, err := r.store.ListEvents(ctx, model.EventFilter{OnlyUnsynced: true})
	if err != nil {
		return 0, fmt.Errorf("list unsynced: %w", err)
	}

	var requeued int
	for _, event := range unsynced {
		if _, ok := queued[event.ID]; ok {
			continue
		}
		if err := r.enqueueEvent(ctx, event); err != nil {
			return requeued, err
		}
		requeued++
	}

	if requeued > 0 {
		r.logger.Info("requeued unsynced events", "count", requeued)
	}
	return requeued, nil
}
