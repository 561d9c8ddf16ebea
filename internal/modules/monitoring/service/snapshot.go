package service

import (
	"time"

	"serverwatch/internal/modules/monitoring/classifier"
	"serverwatch/internal/modules/monitoring/trend"
	"serverwatch/internal/modules/monitoring/types"
)

// Snapshot is everything the dashboard renders from one history listing.
type Snapshot struct {
	// Latest is nil when history is empty.
	Latest  *types.Reading       `json:"latest"`
	Bands   types.Classification `json:"bands"`
	Trend   trend.Series         `json:"trend"`
	History []types.Reading      `json:"history"`
}

// BuildSnapshot derives the status bands of the newest reading and the chart
// series from history. history is not modified.
func BuildSnapshot(history []types.Reading, loc *time.Location) Snapshot {
	if history == nil {
		history = []types.Reading{}
	}
	s := Snapshot{
		Bands:   types.Classification{},
		Trend:   trend.Build(history, loc),
		History: history,
	}
	if len(history) > 0 {
		latest := history[0]
		s.Latest = &latest
		s.Bands = classifier.Classify(latest)
	}
	return s
}
