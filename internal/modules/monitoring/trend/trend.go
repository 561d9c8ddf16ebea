// Package trend derives the chart series from a newest-first history.
package trend

import (
	"time"

	"serverwatch/internal/modules/monitoring/types"
)

// Window is the number of most recent readings plotted on the dashboard.
const Window = 10

// LabelLayout renders the date and time of a reading for the chart axis.
const LabelLayout = "02/01, 15.04"

// Series holds three aligned arrays: one label and one value per plotted reading.
type Series struct {
	Labels      []string  `json:"labels"`
	Temperature []float64 `json:"suhu"`
	Humidity    []float64 `json:"kelembaban"`
}

// Select returns the first min(window, len(history)) readings without
// reordering them. The result never aliases history.
func Select(history []types.Reading, window int) []types.Reading {
	n := min(max(window, 0), len(history))
	out := make([]types.Reading, n)
	copy(out, history[:n])
	return out
}

// Build selects the trend window of history and derives the chart series.
// Labels are rendered in loc; a nil loc means UTC.
func Build(history []types.Reading, loc *time.Location) Series {
	if loc == nil {
		loc = time.UTC
	}
	selected := Select(history, Window)
	s := Series{
		Labels:      make([]string, 0, len(selected)),
		Temperature: make([]float64, 0, len(selected)),
		Humidity:    make([]float64, 0, len(selected)),
	}
	for _, r := range selected {
		s.Labels = append(s.Labels, r.Timestamp.In(loc).Format(LabelLayout))
		s.Temperature = append(s.Temperature, r.TemperatureC)
		s.Humidity = append(s.Humidity, r.HumidityPct)
	}
	return s
}
