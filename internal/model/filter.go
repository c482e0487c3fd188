package model

import "time"

// EventFilter narrows ListEvents results. Zero values mean "no constraint".
type EventFilter struct {
	Limit        int
	Since        *time.Time
	Kind         Kind
	OnlyUnsynced bool
}

// AggregateFilter narrows cross-device event queries on the correlation
// engine's dashboard surface.
type AggregateFilter struct {
	DeviceIDs  []string
	Locations  []string
	Classes    []string
	Start      *time.Time
	End        *time.Time
	AlertLevel AlertLevel
	Limit      int
}
