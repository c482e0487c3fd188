// Package syncq drains the sync queue against the remote reconciler: a
// priority-ordered retry engine owning the online/offline and
// concurrency-exclusion logic.
package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/recorder"
	"github.com/groblegark/sentinel/internal/remote"
	"github.com/groblegark/sentinel/internal/store"
)

const (
	// batchSize bounds how many items one drain pass processes.
	batchSize = 50
	// maxAttempts is the retry budget before an item fails terminally.
	maxAttempts = 3
	// itemDelay spaces out remote calls within a pass.
	itemDelay = 100 * time.Millisecond
	// settleDelay defers the first pass after an online transition.
	settleDelay = time.Second
)

// ErrNotConfigured is returned when remote reconciliation is unavailable.
var ErrNotConfigured = errors.New("remote store not configured")

// Status is the aggregate outcome of the most recent drain pass plus the
// engine's live state.
type Status struct {
	Online   bool       `json:"online"`
	Syncing  bool       `json:"syncing"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Synced   int        `json:"synced"`
	Failed   int        `json:"failed"`
	Errors   []string   `json:"errors,omitempty"`
}

// Engine drains pending sync items through the reconciler. A single
// in-progress flag is the sole mutual exclusion: at most one drain pass runs
// at any instant, so items are never processed twice concurrently and
// event synced transitions are linearizable.
type Engine struct {
	recorder  *recorder.Recorder
	publisher events.Publisher
	logger    *slog.Logger
	interval  time.Duration

	// nil = remote not configured. Swapped at runtime when settings arrive
	// carrying remote credentials.
	reconciler atomic.Pointer[remote.Reconciler]

	processing atomic.Bool
	online     atomic.Bool

	mu      sync.Mutex // guards timer state, last status, subscribers
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	last    Status
	subs    map[int]chan Status
	nextSub int
}

// New creates a sync engine. A nil reconciler leaves the engine in the
// unconfigured state: passes return immediately with no state change.
func New(rec *recorder.Recorder, rc *remote.Reconciler, p events.Publisher, interval time.Duration, logger *slog.Logger) *Engine {
	e := &Engine{
		recorder:  rec,
		publisher: p,
		logger:    logger,
		interval:  interval,
		subs:      make(map[int]chan Status),
	}
	e.reconciler.Store(rc)
	e.online.Store(true)
	return e
}

// Configure swaps in a new reconciler. A pass already in flight finishes
// against the reconciler it started with.
func (e *Engine) Configure(rc *remote.Reconciler) {
	e.reconciler.Store(rc)
}

// Configured reports whether a remote reconciler is wired in.
func (e *Engine) Configured() bool {
	return e.reconciler.Load() != nil
}

// Online reports the last known connectivity state.
func (e *Engine) Online() bool {
	return e.online.Load()
}

// Status returns the engine's current status without doing any work.
func (e *Engine) Status() Status {
	e.mu.Lock()
	s := e.last
	e.mu.Unlock()
	s.Online = e.online.Load()
	s.Syncing = e.processing.Load()
	return s
}

// Subscribe returns a channel receiving a Status after every drain pass.
// Call the returned cancel function to unsubscribe and close the channel.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)

	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// TestConnection probes the remote for reachability and write access.
func (e *Engine) TestConnection(ctx context.Context) (bool, string) {
	rc := e.reconciler.Load()
	if rc == nil {
		return false, "cloud sync is not configured"
	}
	return rc.TestConnection(ctx)
}

// SyncNow triggers one drain pass; identical semantics to the timer path.
func (e *Engine) SyncNow(ctx context.Context) Status {
	return e.ProcessQueue(ctx)
}

// ProcessQueue drains up to batchSize pending items highest-priority-first.
// A second trigger arriving while a pass is active is a no-op that returns
// the current status. Offline or unconfigured passes return immediately.
func (e *Engine) ProcessQueue(ctx context.Context) Status {
	if !e.processing.CompareAndSwap(false, true) {
		e.logger.Debug("sync already in progress")
		return e.Status()
	}
	defer e.processing.Store(false)

	if !e.online.Load() {
		e.logger.Debug("offline, skipping sync")
		return e.Status()
	}
	// Snapshot so the whole pass runs against one reconciler even if a
	// reconfigure lands mid-pass.
	rc := e.reconciler.Load()
	if rc == nil {
		e.logger.Debug("remote not configured, skipping sync")
		return e.Status()
	}

	items, err := e.recorder.GetSyncQueue(ctx, batchSize)
	if err != nil {
		e.logger.Error("failed to read sync queue", "error", err)
		return e.finishPass(ctx, Status{Errors: []string{err.Error()}})
	}
	if len(items) == 0 {
		return e.finishPass(ctx, Status{})
	}

	start := time.Now()
	var result Status

	// Sequential, not fan-out: bounds remote load and preserves priority order.
	for i, item := range items {
		// An offline transition mid-pass stops new remote calls from starting;
		// the call already in flight has completed by the time we get here.
		if !e.online.Load() {
			break
		}
		if err := e.processItem(ctx, rc, item, &result); err != nil {
			// StorageError while recording the outcome; collect and move on so
			// one item never aborts the batch.
			result.Errors = append(result.Errors, err.Error())
		}

		if i < len(items)-1 {
			select {
			case <-ctx.Done():
				result.Errors = append(result.Errors, ctx.Err().Error())
				return e.finishPass(ctx, result)
			case <-time.After(itemDelay):
			}
		}
	}

	e.logger.Info("sync pass completed",
		"synced", result.Synced,
		"failed", result.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return e.finishPass(ctx, result)
}

// processItem dispatches one queue item and records its outcome. The returned
// error reflects a local storage failure, not a remote one; remote failures
// feed the retry path.
func (e *Engine) processItem(ctx context.Context, rc *remote.Reconciler, item *model.QueueItem, result *Status) error {
	dispatchErr := e.dispatch(ctx, rc, item)
	if dispatchErr == nil {
		if err := e.recorder.RemoveSyncQueueItem(ctx, item.ID); err != nil {
			return fmt.Errorf("remove queue item %s: %w", item.ID, err)
		}
		if item.Kind == model.ItemEvent {
			if err := e.recorder.MarkEventSynced(ctx, item.EventID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("mark synced %s: %w", item.EventID, err)
			}
			if err := e.publisher.Publish(ctx, events.TopicEventSynced, events.EventSynced{EventID: item.EventID}); err != nil {
				e.logger.Warn("failed to publish event", "topic", events.TopicEventSynced, "error", err)
			}
		}
		result.Synced++
		return nil
	}

	now := time.Now().UTC()
	item.Attempts++
	item.LastAttempt = &now
	item.LastError = dispatchErr.Error()

	if item.Kind == model.ItemEvent {
		if err := e.recorder.RecordSyncAttempt(ctx, item.EventID); err != nil && !errors.Is(err, store.ErrNotFound) {
			e.logger.Warn("failed to record sync attempt", "event_id", item.EventID, "error", err)
		}
	}

	if item.Attempts >= maxAttempts {
		// Terminal: the record stays locally persisted but is never retried
		// automatically again.
		if err := e.recorder.RemoveSyncQueueItem(ctx, item.ID); err != nil {
			return fmt.Errorf("drop queue item %s: %w", item.ID, err)
		}
		msg := fmt.Sprintf("giving up on %s %s after %d attempts: %v", item.Kind, item.EventID, item.Attempts, dispatchErr)
		result.Failed++
		result.Errors = append(result.Errors, msg)
		e.logger.Error("sync item failed terminally", "kind", item.Kind, "id", item.EventID, "error", dispatchErr)
		if err := e.publisher.Publish(ctx, events.TopicEventSyncFailed, events.EventSyncFailed{
			EventID:  item.EventID,
			Kind:     item.Kind.String(),
			Attempts: item.Attempts,
			Error:    dispatchErr.Error(),
		}); err != nil {
			e.logger.Warn("failed to publish event", "topic", events.TopicEventSyncFailed, "error", err)
		}
		return nil
	}

	if err := e.recorder.EnqueueSyncItem(ctx, item); err != nil {
		return fmt.Errorf("requeue item %s: %w", item.ID, err)
	}
	e.logger.Warn("sync item will retry", "kind", item.Kind, "id", item.EventID, "attempt", item.Attempts, "error", dispatchErr)
	return nil
}

// dispatch sends one item's payload to the reconciler.
func (e *Engine) dispatch(ctx context.Context, rc *remote.Reconciler, item *model.QueueItem) error {
	switch item.Kind {
	case model.ItemEvent:
		// Prefer the live row so media saved after enqueue is included; fall
		// back to the enqueue-time snapshot if the row is gone.
		event, err := e.recorder.GetEvent(ctx, item.EventID)
		if errors.Is(err, store.ErrNotFound) {
			event = &model.Event{}
			if uerr := json.Unmarshal(item.Payload, event); uerr != nil {
				return fmt.Errorf("decode event snapshot: %w", uerr)
			}
		} else if err != nil {
			return err
		}
		return rc.UploadEvent(ctx, event)

	case model.ItemSettings:
		var settings model.Settings
		if err := json.Unmarshal(item.Payload, &settings); err != nil {
			return fmt.Errorf("decode settings snapshot: %w", err)
		}
		return rc.UploadSettings(ctx, &settings)

	case model.ItemBlob:
		event, err := e.recorder.GetEvent(ctx, item.EventID)
		if err != nil {
			return err
		}
		return rc.UploadMedia(ctx, event)

	default:
		return fmt.Errorf("unknown sync item kind %q", item.Kind)
	}
}

// finishPass records the pass outcome, notifies subscribers, and publishes
// the aggregate to the bus.
func (e *Engine) finishPass(ctx context.Context, result Status) Status {
	now := time.Now().UTC()
	result.LastSync = &now

	e.mu.Lock()
	e.last = result
	for _, ch := range e.subs {
		select {
		case ch <- result:
		default:
			// Drop rather than block a slow subscriber.
		}
	}
	e.mu.Unlock()

	if result.Synced > 0 || result.Failed > 0 {
		if err := e.publisher.Publish(ctx, events.TopicSyncCompleted, events.SyncCompleted{
			Synced:  result.Synced,
			Failed:  result.Failed,
			Errors:  result.Errors,
			Elapsed: time.Since(now).String(),
		}); err != nil {
			e.logger.Warn("failed to publish event", "topic", events.TopicSyncCompleted, "error", err)
		}
	}

	result.Online = e.online.Load()
	return result
}

// Start arms the recurring sync timer. Idempotent: a second Start while the
// timer is armed is a no-op. The first pass runs a resync sweep so unsynced
// events that lost their queue item (crash between persist and enqueue) are
// re-enqueued.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx)
	}()
}

// Stop disarms the timer and waits for the current pass (if any) to finish.
// In-flight remote calls are not force-cancelled; they fail naturally and
// fall into the retry path.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) {
	// Cancellation only exits the timer loop. Passes run on a detached
	// context so an in-flight remote call completes or fails on its own
	// terms rather than being aborted by Stop or an offline transition.
	work := context.WithoutCancel(ctx)

	if n, err := e.recorder.ResyncUnsynced(work); err != nil {
		e.logger.Error("resync sweep failed", "error", err)
	} else if n > 0 {
		e.logger.Info("resync sweep requeued events", "count", n)
	}
	e.ProcessQueue(work)

	if e.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.online.Load() && e.reconciler.Load() != nil {
				e.ProcessQueue(work)
			}
		}
	}
}

// SetOnline records a connectivity transition. Going online arms the timer
// and schedules one pass after a short settle delay; going offline disarms
// the timer without cancelling anything in flight.
func (e *Engine) SetOnline(online bool) {
	if e.online.Swap(online) == online {
		return
	}
	e.logger.Info("network transition", "online", online)

	if online {
		e.Start()
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			time.Sleep(settleDelay)
			if e.online.Load() {
				e.ProcessQueue(context.Background())
			}
		}()
		return
	}
	e.Stop()
}
