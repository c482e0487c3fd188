package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/groblegark/sentinel/internal/model"
)

// Remote object layout: event metadata, media siblings keyed by event id, and
// the settings singleton at a fixed path.
const (
	eventPrefix = "events/"
	imagePrefix = "images/"
	videoPrefix = "videos/"
	settingsKey = "settings/settings.json"
	probeKey    = "probe/connection_check.json"
)

func eventKey(id string) string { return eventPrefix + id + ".json" }
func imageKey(id string) string { return imagePrefix + id + ".jpg" }
func videoKey(id string) string { return videoPrefix + id + ".mp4" }

// eventIDFromKey extracts the event id from an "events/<id>.json" key.
func eventIDFromKey(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, eventPrefix), ".json")
}

// Reconciler maps events and settings onto the remote object namespace.
type Reconciler struct {
	objects ObjectStore
	logger  *slog.Logger
}

// NewReconciler returns a Reconciler over the given object store.
func NewReconciler(objects ObjectStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{objects: objects, logger: logger}
}

// UploadEvent writes the event metadata as one object and any media payloads
// as sibling objects keyed by event id.
func (r *Reconciler) UploadEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	if err := r.objects.Put(ctx, eventKey(event.ID), data, "application/json"); err != nil {
		return err
	}

	if len(event.Image) > 0 {
		if err := r.objects.Put(ctx, imageKey(event.ID), event.Image, "image/jpeg"); err != nil {
			return err
		}
	}
	if len(event.Video) > 0 {
		if err := r.objects.Put(ctx, videoKey(event.ID), event.Video, "video/mp4"); err != nil {
			return err
		}
	}
	return nil
}

// UploadMedia writes only the event's media payloads, used when retrying a
// blob queue item whose metadata object already landed.
func (r *Reconciler) UploadMedia(ctx context.Context, event *model.Event) error {
	if len(event.Image) > 0 {
		if err := r.objects.Put(ctx, imageKey(event.ID), event.Image, "image/jpeg"); err != nil {
			return err
		}
	}
	if len(event.Video) > 0 {
		if err := r.objects.Put(ctx, videoKey(event.ID), event.Video, "video/mp4"); err != nil {
			return err
		}
	}
	return nil
}

// UploadSettings writes the settings singleton object.
func (r *Reconciler) UploadSettings(ctx context.Context, settings *model.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return r.objects.Put(ctx, settingsKey, data, "application/json")
}

// DownloadEvents lists remote event objects, optionally filtered by a since
// cursor, fetches each, and attaches sibling media where present. Per-object
// failures are logged and skipped.
func (r *Reconciler) DownloadEvents(ctx context.Context, since *time.Time) ([]*model.Event, error) {
	infos, err := r.objects.List(ctx, eventPrefix)
	if err != nil {
		return nil, err
	}

	var result []*model.Event
	for _, info := range infos {
		data, err := r.objects.Get(ctx, info.Key)
		if err != nil {
			r.logger.Warn("failed to fetch remote event", "key", info.Key, "error", err)
			continue
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			r.logger.Warn("failed to decode remote event", "key", info.Key, "error", err)
			continue
		}

		if since != nil && event.Timestamp.Before(*since) {
			continue
		}

		// Sibling media is best-effort; absence is not an error.
		id := eventIDFromKey(info.Key)
		if img, err := r.objects.Get(ctx, imageKey(id)); err == nil {
			event.Image = img
		} else if !IsNotFound(err) {
			r.logger.Warn("failed to fetch remote image", "event_id", id, "error", err)
		}
		if vid, err := r.objects.Get(ctx, videoKey(id)); err == nil {
			event.Video = vid
		} else if !IsNotFound(err) {
			r.logger.Warn("failed to fetch remote video", "event_id", id, "error", err)
		}

		result = append(result, &event)
	}

	return result, nil
}

// DownloadSettings fetches the remote settings singleton. Absence is not an
// error; it returns (nil, nil).
func (r *Reconciler) DownloadSettings(ctx context.Context) (*model.Settings, error) {
	data, err := r.objects.Get(ctx, settingsKey)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode remote settings: %w", err)
	}
	return &settings, nil
}

// CleanupOlderThan deletes remote event objects (plus media siblings) older
// than the cutoff. Per-object failures are logged and do not abort the batch.
func (r *Reconciler) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	infos, err := r.objects.List(ctx, eventPrefix)
	if err != nil {
		return 0, err
	}

	var deleted int
	for _, info := range infos {
		if !info.LastModified.Before(cutoff) {
			continue
		}
		if err := r.objects.Delete(ctx, info.Key); err != nil {
			r.logger.Warn("failed to delete remote event", "key", info.Key, "error", err)
			continue
		}
		id := eventIDFromKey(info.Key)
		if err := r.objects.Delete(ctx, imageKey(id)); err != nil {
			r.logger.Warn("failed to delete remote image", "event_id", id, "error", err)
		}
		if err := r.objects.Delete(ctx, videoKey(id)); err != nil {
			r.logger.Warn("failed to delete remote video", "event_id", id, "error", err)
		}
		deleted++
	}

	r.logger.Info("remote cleanup completed", "deleted", deleted, "retention_days", days)
	return deleted, nil
}

// TestConnection validates end-to-end permissions: a listing call followed by
// a throwaway write and delete. The diagnostic string distinguishes auth
// failures from a missing container and network trouble.
func (r *Reconciler) TestConnection(ctx context.Context) (bool, string) {
	if _, err := r.objects.List(ctx, eventPrefix); err != nil {
		return false, diagnose("listing failed", err)
	}

	probe, err := json.Marshal(map[string]any{"probe": true, "at": time.Now().UTC()})
	if err != nil {
		return false, fmt.Sprintf("encode probe: %v", err)
	}
	if err := r.objects.Put(ctx, probeKey, probe, "application/json"); err != nil {
		return false, diagnose("write failed", err)
	}
	if err := r.objects.Delete(ctx, probeKey); err != nil {
		r.logger.Warn("failed to clean up connection probe", "error", err)
	}

	return true, "ok"
}

func diagnose(op string, err error) string {
	switch ClassifyKind(err) {
	case KindAuth:
		return op + ": credentials rejected; check the access token permissions and expiry"
	case KindNotFound:
		return op + ": container not found; create it or fix the configured name"
	case KindNetwork:
		return op + ": network unreachable or timed out"
	default:
		return fmt.Sprintf("%s: %v", op, err)
	}
}
