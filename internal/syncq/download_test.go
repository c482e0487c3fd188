package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/recorder"
)

func putRemoteEvent(t *testing.T, objects *memObjects, event *model.Event) {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := objects.Put(context.Background(), "events/"+event.ID+".json", data, "application/json"); err != nil {
		t.Fatalf("put remote event: %v", err)
	}
}

func putRemoteSettings(t *testing.T, objects *memObjects, settings *model.Settings) {
	t.Helper()
	data, err := json.Marshal(settings)
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	if err := objects.Put(context.Background(), "settings/settings.json", data, "application/json"); err != nil {
		t.Fatalf("put remote settings: %v", err)
	}
}

func TestDownload_NotConfigured(t *testing.T) {
	rig := newTestRig(t, false)
	if _, err := rig.engine.Download(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDownload_ImportsRemoteEvents(t *testing.T) {
	rig := newTestRig(t, true)
	rig.enableCloudSync(t)

	remote := &model.Event{
		ID:        "evt-other-device",
		Timestamp: time.Now().UTC(),
		Kind:      model.KindDetection,
		DeviceID:  "dev-2",
		Detections: []model.Detection{
			{Class: model.ClassPerson, Score: 0.95},
		},
	}
	putRemoteEvent(t, rig.objects, remote)

	result, err := rig.engine.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if result.Events != 1 || result.Conflicts != 0 {
		t.Fatalf("result = %+v, want 1 imported", result)
	}

	local, err := rig.store.ListEvents(context.Background(), model.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(local) != 1 {
		t.Fatalf("got %d local events, want 1", len(local))
	}
	if local[0].ID == remote.ID {
		t.Error("imported event must get a fresh local id")
	}
	if !local[0].Synced {
		t.Error("imported event must be marked synced")
	}
}

func TestDownload_DedupWithinWindow(t *testing.T) {
	rig := newTestRig(t, true)
	rig.enableCloudSync(t)

	base := time.Now().UTC()
	rig.saveEvent(t, recorder.Draft{
		Timestamp:  base,
		Kind:       model.KindDetection,
		Detections: []model.Detection{{Class: model.ClassPerson, Score: 0.9}},
	})

	// Same detection count within one second of a local event: duplicate.
	dup := &model.Event{
		ID:         "evt-dup",
		Timestamp:  base.Add(500 * time.Millisecond),
		Kind:       model.KindDetection,
		Detections: []model.Detection{{Class: model.ClassPerson, Score: 0.88}},
	}
	// Outside the window: a distinct occurrence.
	distinct := &model.Event{
		ID:         "evt-distinct",
		Timestamp:  base.Add(5 * time.Second),
		Kind:       model.KindDetection,
		Detections: []model.Detection{{Class: model.ClassPerson, Score: 0.91}},
	}
	putRemoteEvent(t, rig.objects, dup)
	putRemoteEvent(t, rig.objects, distinct)

	result, err := rig.engine.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if result.Conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", result.Conflicts)
	}
	if result.Events != 1 {
		t.Errorf("imported = %d, want 1", result.Events)
	}
}

func TestDownload_SettingsLastWriterWins(t *testing.T) {
	rig := newTestRig(t, true)
	rig.enableCloudSync(t)

	// Remote settings newer than the local save: adopted.
	newer := model.DefaultSettings()
	newer.CloudSync = true
	newer.AlertThreshold = 0.8
	newer.LastModified = time.Now().UTC().Add(time.Hour)
	putRemoteSettings(t, rig.objects, newer)

	result, err := rig.engine.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !result.SettingsUpdated {
		t.Fatal("expected settings to be updated from remote")
	}
	got, err := rig.rec.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.AlertThreshold != 0.8 {
		t.Errorf("alert threshold = %v, want remote value 0.8", got.AlertThreshold)
	}

	// Remote settings older than local: ignored.
	older := model.DefaultSettings()
	older.AlertThreshold = 0.3
	older.LastModified = time.Now().UTC().Add(-time.Hour)
	putRemoteSettings(t, rig.objects, older)

	result, err = rig.engine.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if result.SettingsUpdated {
		t.Error("stale remote settings must not replace local ones")
	}
}

func TestCleanup(t *testing.T) {
	rig := newTestRig(t, true)
	rig.enableCloudSync(t)

	// An old synced local event and an old remote object.
	old := time.Now().UTC().AddDate(0, 0, -40)
	if err := rig.store.SaveEvent(context.Background(), &model.Event{
		ID: "evt-old-local", Timestamp: old, Kind: model.KindMotion, Synced: true,
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	putRemoteEvent(t, rig.objects, &model.Event{ID: "evt-old-remote", Timestamp: old, Kind: model.KindMotion})
	rig.objects.mtimes["events/evt-old-remote.json"] = old

	result, err := rig.engine.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.LocalDeleted != 1 {
		t.Errorf("local deleted = %d, want 1", result.LocalDeleted)
	}
	if result.RemoteDeleted != 1 {
		t.Errorf("remote deleted = %d, want 1", result.RemoteDeleted)
	}
	if !rig.pub.published(events.TopicCleanupDone) {
		t.Error("expected cleanup completion on the bus")
	}
}

func TestCleanup_LocalOnlyWhenUnconfigured(t *testing.T) {
	rig := newTestRig(t, false)

	old := time.Now().UTC().AddDate(0, 0, -40)
	if err := rig.store.SaveEvent(context.Background(), &model.Event{
		ID: "evt-old", Timestamp: old, Kind: model.KindMotion, Synced: true,
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	result, err := rig.engine.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.LocalDeleted != 1 || result.RemoteDeleted != 0 {
		t.Errorf("result = %+v, want local-only cleanup", result)
	}
}
