// Package correlate ingests events tagged with a source device, maintains
// rolling in-memory summaries, and links temporally-related events observed
// by different devices into chains.
package correlate

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/model"
)

const (
	// defaultWindow bounds how far back detectors look.
	defaultWindow = time.Hour
	// alertWindow is the range the alert-level grading considers.
	alertWindow = 30 * time.Minute
	// activeWindow is the range counted as "active detections".
	activeWindow = 5 * time.Minute
)

// Detector is a pattern detector run against each ingested event and the
// recent cross-device window. Implementations may annotate events with
// correlation state; they run under the engine's write lock.
type Detector interface {
	Name() string
	Analyze(event *model.MultiDeviceEvent, recent []*model.MultiDeviceEvent)
}

// Engine is the multi-device correlation engine. It owns derived, in-memory
// state only and never mutates the underlying persisted events.
type Engine struct {
	mu        sync.RWMutex
	events    map[string]*model.MultiDeviceEvent
	queues    map[string][]*model.MultiDeviceEvent // per source device
	detectors []Detector

	publisher events.Publisher
	logger    *slog.Logger
	window    time.Duration
	now       func() time.Time
}

// New creates a correlation engine with the built-in detectors registered:
// motion-sequence, plus the person-tracking and area-coverage extension
// points.
func New(p events.Publisher, logger *slog.Logger) *Engine {
	e := &Engine{
		events:    make(map[string]*model.MultiDeviceEvent),
		queues:    make(map[string][]*model.MultiDeviceEvent),
		publisher: p,
		logger:    logger,
		window:    defaultWindow,
		now:       time.Now,
	}
	e.detectors = []Detector{
		newMotionSequenceDetector(e),
		personTrackingDetector{},
		areaCoverageDetector{},
	}
	return e
}

// Register adds a custom detector to the analysis pipeline.
func (e *Engine) Register(d Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detectors = append(e.detectors, d)
}

// Ingest tags the event with its source device, stores it, and runs all
// detectors against the recent window.
func (e *Engine) Ingest(ctx context.Context, event *model.Event, device model.SourceDevice) *model.MultiDeviceEvent {
	mde := &model.MultiDeviceEvent{
		Event:        *event,
		SourceDevice: device,
	}

	e.mu.Lock()
	e.events[mde.ID] = mde
	e.queues[device.ID] = append(e.queues[device.ID], mde)

	recent := e.recentLocked()
	for _, d := range e.detectors {
		d.Analyze(mde, recent)
	}
	correlationID := mde.CorrelationID
	e.mu.Unlock()

	if correlationID != "" {
		e.logger.Info("event correlated", "event_id", mde.ID, "correlation_id", correlationID, "device", device.ID)
	}
	return mde
}

// Event returns the in-memory annotated event by id.
func (e *Engine) Event(id string) (*model.MultiDeviceEvent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	mde, ok := e.events[id]
	return mde, ok
}

// recentLocked returns all events inside the detection window. Callers must
// hold the lock.
func (e *Engine) recentLocked() []*model.MultiDeviceEvent {
	cutoff := e.now().Add(-e.window)
	var recent []*model.MultiDeviceEvent
	for _, ev := range e.events {
		if !ev.Timestamp.Before(cutoff) {
			recent = append(recent, ev)
		}
	}
	return recent
}

// AggregatedEvents returns events across all devices narrowed by the filter,
// sorted newest-first. Read-only and side-effect free.
func (e *Engine) AggregatedEvents(filter model.AggregateFilter) []*model.MultiDeviceEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	deviceSet := toSet(filter.DeviceIDs)
	locationSet := toSet(filter.Locations)
	classSet := toSet(filter.Classes)

	var levels map[string]model.AlertLevel
	if filter.AlertLevel != "" {
		levels = e.deviceAlertLevelsLocked()
	}

	var result []*model.MultiDeviceEvent
	for _, ev := range e.events {
		if deviceSet != nil {
			if _, ok := deviceSet[ev.SourceDevice.ID]; !ok {
				continue
			}
		}
		if locationSet != nil {
			if _, ok := locationSet[ev.SourceDevice.Location]; !ok {
				continue
			}
		}
		if filter.Start != nil && ev.Timestamp.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && ev.Timestamp.After(*filter.End) {
			continue
		}
		if classSet != nil && !hasAnyClass(ev, classSet) {
			continue
		}
		if levels != nil && alertRank(levels[ev.SourceDevice.ID]) < alertRank(filter.AlertLevel) {
			continue
		}
		result = append(result, ev)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func hasAnyClass(ev *model.MultiDeviceEvent, classes map[string]struct{}) bool {
	for _, d := range ev.Detections {
		if _, ok := classes[d.Class]; ok {
			return true
		}
	}
	return false
}

func alertRank(level model.AlertLevel) int {
	switch level {
	case model.AlertHigh:
		return 2
	case model.AlertMedium:
		return 1
	default:
		return 0
	}
}
