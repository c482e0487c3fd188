package model

import "testing"

func TestKindIsValid(t *testing.T) {
	for _, k := range []Kind{KindDetection, KindMotion, KindAlert, KindManual} {
		if !k.IsValid() {
			t.Errorf("Kind(%q).IsValid() = false, want true", k)
		}
	}
	for _, k := range []Kind{"", "bogus", "Detection"} {
		if k.IsValid() {
			t.Errorf("Kind(%q).IsValid() = true, want false", k)
		}
	}
}

func TestSyncPriority(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  int
	}{
		{"alert", Event{Kind: KindAlert}, 5},
		{"person detection", Event{Kind: KindDetection, Detections: []Detection{{Class: ClassPerson, Score: 0.9}}}, 4},
		{"other detection", Event{Kind: KindDetection, Detections: []Detection{{Class: "car", Score: 0.8}}}, 3},
		{"detection without boxes", Event{Kind: KindDetection}, 3},
		{"motion", Event{Kind: KindMotion}, 2},
		{"manual", Event{Kind: KindManual}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.SyncPriority(); got != tc.want {
				t.Errorf("SyncPriority() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestHasDetection(t *testing.T) {
	e := Event{Detections: []Detection{{Class: "car"}, {Class: ClassPerson}}}
	if !e.HasDetection(ClassPerson) {
		t.Error("expected person detection")
	}
	if e.HasDetection("bicycle") {
		t.Error("unexpected bicycle detection")
	}
}

func TestItemKindIsValid(t *testing.T) {
	for _, k := range []ItemKind{ItemEvent, ItemSettings, ItemBlob} {
		if !k.IsValid() {
			t.Errorf("ItemKind(%q).IsValid() = false, want true", k)
		}
	}
	if ItemKind("queue").IsValid() {
		t.Error("ItemKind(\"queue\").IsValid() = true, want false")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.AlertThreshold != 0.6 {
		t.Errorf("AlertThreshold = %v, want 0.6", s.AlertThreshold)
	}
	if !s.RecordingEnabled {
		t.Error("RecordingEnabled = false, want true")
	}
	if s.Remote.Configured() {
		t.Error("default remote should not be configured")
	}
}
