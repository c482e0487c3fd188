package correlate

import (
	"context"
	"sort"
	"time"

	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/idgen"
	"github.com/groblegark/sentinel/internal/model"
)

// sequenceWindow is the maximum spacing between related person detections
// on different devices for them to count as one sequence.
const sequenceWindow = 60 * time.Second

// motionSequenceDetector links person detections seen by at least two
// different devices within sequenceWindow of each other under a shared
// correlation id and builds the event chain between them.
type motionSequenceDetector struct {
	engine *Engine
}

func newMotionSequenceDetector(e *Engine) *motionSequenceDetector {
	return &motionSequenceDetector{engine: e}
}

func (d *motionSequenceDetector) Name() string { return "motion-sequence" }

func (d *motionSequenceDetector) Analyze(event *model.MultiDeviceEvent, recent []*model.MultiDeviceEvent) {
	if !event.HasDetection(model.ClassPerson) {
		return
	}

	var related []*model.MultiDeviceEvent
	for _, r := range recent {
		if r.ID == event.ID || r.SourceDevice.ID == event.SourceDevice.ID {
			continue
		}
		if !r.HasDetection(model.ClassPerson) {
			continue
		}
		if absDuration(event.Timestamp.Sub(r.Timestamp)) > sequenceWindow {
			continue
		}
		related = append(related, r)
	}
	if len(related) == 0 {
		return
	}

	// Join an existing sequence when one of the related events carries a
	// correlation id already, otherwise mint a fresh one.
	correlationID := event.CorrelationID
	for _, r := range related {
		if r.CorrelationID != "" {
			correlationID = r.CorrelationID
			break
		}
	}
	if correlationID == "" {
		id, err := idgen.Sequence()
		if err != nil {
			d.engine.logger.Warn("failed to generate sequence id", "error", err)
			return
		}
		correlationID = id
	}

	members := append(related, event)
	sort.Slice(members, func(i, j int) bool {
		return members[i].Timestamp.Before(members[j].Timestamp)
	})

	eventIDs := make([]string, 0, len(members))
	deviceIDs := make([]string, 0, len(members))
	seenDevices := make(map[string]struct{})
	for i, m := range members {
		m.CorrelationID = correlationID
		chain := &model.EventChain{Kind: model.ChainMotionSequence}
		if i > 0 {
			chain.PreviousEvent = members[i-1].ID
		}
		if i < len(members)-1 {
			chain.NextEvent = members[i+1].ID
		}
		m.Chain = chain

		eventIDs = append(eventIDs, m.ID)
		if _, ok := seenDevices[m.SourceDevice.ID]; !ok {
			seenDevices[m.SourceDevice.ID] = struct{}{}
			deviceIDs = append(deviceIDs, m.SourceDevice.ID)
		}
	}

	d.engine.logger.Info("motion sequence detected",
		"correlation_id", correlationID,
		"events", len(eventIDs),
		"devices", len(deviceIDs))

	if d.engine.publisher != nil {
		if err := d.engine.publisher.Publish(context.Background(), events.TopicSequenceDetected, events.SequenceDetected{
			CorrelationID: correlationID,
			Kind:          string(model.ChainMotionSequence),
			EventIDs:      eventIDs,
			Devices:       deviceIDs,
		}); err != nil {
			d.engine.logger.Warn("failed to publish sequence event", "error", err, "correlation_id", correlationID)
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// personTrackingDetector is an extension point for following a single person
// across cameras. Not yet implemented.
type personTrackingDetector struct{}

func (personTrackingDetector) Name() string { return "person-tracking" }

func (personTrackingDetector) Analyze(*model.MultiDeviceEvent, []*model.MultiDeviceEvent) {}

// areaCoverageDetector is an extension point for grading how well devices
// cover a location. Not yet implemented.
type areaCoverageDetector struct{}

func (areaCoverageDetector) Name() string { return "area-coverage" }

func (areaCoverageDetector) Analyze(*model.MultiDeviceEvent, []*model.MultiDeviceEvent) {}
