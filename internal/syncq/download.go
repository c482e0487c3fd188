package syncq

import (
	"context"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/model"
)

// dedupWindow is the timestamp tolerance within which a downloaded event with
// a matching detection count is considered a duplicate of a local one.
const dedupWindow = time.Second

// DownloadResult summarizes a download-and-merge run.
type DownloadResult struct {
	Events          int  `json:"events"`
	SettingsUpdated bool `json:"settings_updated"`
	Conflicts       int  `json:"conflicts"`
}

// CleanupResult summarizes a retention sweep.
type CleanupResult struct {
	LocalDeleted  int `json:"local_deleted"`
	RemoteDeleted int `json:"remote_deleted"`
}

// Download merges remote state into the local store: settings last-writer-wins
// by LastModified, events deduplicated against local history. Duplicates are
// discarded, never an error.
func (e *Engine) Download(ctx context.Context) (*DownloadResult, error) {
	rc := e.reconciler.Load()
	if rc == nil {
		return nil, ErrNotConfigured
	}

	result := &DownloadResult{}

	remoteSettings, err := rc.DownloadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if remoteSettings != nil {
		local, err := e.recorder.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		if remoteSettings.LastModified.After(local.LastModified) {
			if _, err := e.recorder.SaveSettings(ctx, remoteSettings); err != nil {
				return nil, err
			}
			result.SettingsUpdated = true
			e.logger.Info("settings updated from remote")
		}
	}

	// Only fetch remote events newer than the newest local one.
	var since *time.Time
	newest, err := e.recorder.ListEvents(ctx, model.EventFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(newest) > 0 {
		t := newest[0].Timestamp.Add(-dedupWindow)
		since = &t
	}

	remoteEvents, err := rc.DownloadEvents(ctx, since)
	if err != nil {
		return nil, err
	}

	for _, event := range remoteEvents {
		dup, err := e.isDuplicate(ctx, event)
		if err != nil {
			e.logger.Warn("duplicate check failed", "error", err)
			continue
		}
		if dup {
			result.Conflicts++
			continue
		}
		if _, err := e.recorder.ImportEvent(ctx, event); err != nil {
			e.logger.Warn("failed to import remote event", "error", err)
			continue
		}
		result.Events++
	}

	e.logger.Info("download completed",
		"events", result.Events,
		"conflicts", result.Conflicts,
		"settings_updated", result.SettingsUpdated)
	return result, nil
}

// isDuplicate reports whether a local event exists within dedupWindow of the
// incoming timestamp with the same detection count.
func (e *Engine) isDuplicate(ctx context.Context, incoming *model.Event) (bool, error) {
	since := incoming.Timestamp.Add(-dedupWindow)
	candidates, err := e.recorder.ListEvents(ctx, model.EventFilter{Since: &since, Limit: 50})
	if err != nil {
		return false, err
	}
	for _, c := range candidates {
		delta := c.Timestamp.Sub(incoming.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta < dedupWindow && len(c.Detections) == len(incoming.Detections) {
			return true, nil
		}
	}
	return false, nil
}

// Cleanup runs the retention sweep locally and, when configured, remotely.
func (e *Engine) Cleanup(ctx context.Context, days int) (*CleanupResult, error) {
	result := &CleanupResult{}

	local, err := e.recorder.CleanupOldEvents(ctx, days)
	if err != nil {
		return nil, err
	}
	result.LocalDeleted = local

	if rc := e.reconciler.Load(); rc != nil {
		remote, err := rc.CleanupOlderThan(ctx, days)
		if err != nil {
			return result, err
		}
		result.RemoteDeleted = remote
	}

	if err := e.publisher.Publish(ctx, events.TopicCleanupDone, events.CleanupDone{
		LocalDeleted:  result.LocalDeleted,
		RemoteDeleted: result.RemoteDeleted,
	}); err != nil {
		e.logger.Warn("failed to publish event", "topic", events.TopicCleanupDone, "error", err)
	}

	return result, nil
}
