package correlate

import (
	"sort"
	"time"

	"github.com/groblegark/sentinel/internal/model"
)

const topDetectionLimit = 5

// DeviceSummaries returns the dashboard rollup for every known device,
// sorted by device id.
func (e *Engine) DeviceSummaries() []model.DeviceSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	midnight := startOfDay(now)

	summaries := make([]model.DeviceSummary, 0, len(e.queues))
	for deviceID, queue := range e.queues {
		if len(queue) == 0 {
			continue
		}
		last := queue[len(queue)-1]

		var today []*model.MultiDeviceEvent
		for _, ev := range queue {
			if !ev.Timestamp.Before(midnight) {
				today = append(today, ev)
			}
		}

		summaries = append(summaries, model.DeviceSummary{
			DeviceID:      deviceID,
			DeviceName:    last.SourceDevice.Name,
			EventsToday:   len(today),
			LastEventTime: last.Timestamp,
			AlertLevel:    gradeAlertLevel(queue, now),
			TopDetections: topDetections(today),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DeviceID < summaries[j].DeviceID
	})
	return summaries
}

// LocationSummaries returns the dashboard rollup grouped by device location,
// sorted by location name. Events from devices without a location are
// grouped under the empty string.
func (e *Engine) LocationSummaries() []model.LocationSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	midnight := startOfDay(now)
	activeCutoff := now.Add(-activeWindow)

	byLocation := make(map[string][]*model.MultiDeviceEvent)
	devices := make(map[string]map[string]struct{})
	for _, ev := range e.events {
		loc := ev.SourceDevice.Location
		byLocation[loc] = append(byLocation[loc], ev)
		if devices[loc] == nil {
			devices[loc] = make(map[string]struct{})
		}
		devices[loc][ev.SourceDevice.ID] = struct{}{}
	}

	summaries := make([]model.LocationSummary, 0, len(byLocation))
	for loc, evs := range byLocation {
		summary := model.LocationSummary{
			Location:   loc,
			Devices:    len(devices[loc]),
			AlertLevel: gradeAlertLevel(evs, now),
		}
		for _, ev := range evs {
			if !ev.Timestamp.Before(midnight) {
				summary.EventsToday++
			}
			if ev.Timestamp.After(summary.LastActivity) {
				summary.LastActivity = ev.Timestamp
			}
			if !ev.Timestamp.Before(activeCutoff) {
				summary.ActiveDetections++
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Location < summaries[j].Location
	})
	return summaries
}

// deviceAlertLevelsLocked grades each device's current alert level. Callers
// must hold the lock.
func (e *Engine) deviceAlertLevelsLocked() map[string]model.AlertLevel {
	now := e.now()
	levels := make(map[string]model.AlertLevel, len(e.queues))
	for deviceID, queue := range e.queues {
		levels[deviceID] = gradeAlertLevel(queue, now)
	}
	return levels
}

// gradeAlertLevel counts events inside the alert window: more than 10 is
// high, more than 5 is medium, anything else low.
func gradeAlertLevel(evs []*model.MultiDeviceEvent, now time.Time) model.AlertLevel {
	cutoff := now.Add(-alertWindow)
	recent := 0
	for _, ev := range evs {
		if !ev.Timestamp.Before(cutoff) {
			recent++
		}
	}
	switch {
	case recent > 10:
		return model.AlertHigh
	case recent > 5:
		return model.AlertMedium
	default:
		return model.AlertLow
	}
}

// topDetections rolls up detection classes with their counts and mean
// confidence, most frequent first, capped at topDetectionLimit.
func topDetections(evs []*model.MultiDeviceEvent) []model.DetectionCount {
	counts := make(map[string]int)
	scores := make(map[string]float64)
	for _, ev := range evs {
		for _, d := range ev.Detections {
			counts[d.Class]++
			scores[d.Class] += d.Score
		}
	}
	if len(counts) == 0 {
		return nil
	}

	result := make([]model.DetectionCount, 0, len(counts))
	for class, count := range counts {
		result = append(result, model.DetectionCount{
			Class:      class,
			Count:      count,
			Confidence: scores[class] / float64(count),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Class < result[j].Class
	})
	if len(result) > topDetectionLimit {
		result = result[:topDetectionLimit]
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
