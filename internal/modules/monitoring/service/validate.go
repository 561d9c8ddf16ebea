package service

import (
	"math"
	"strconv"
	"strings"
	"time"

	"serverwatch/internal/modules/monitoring/types"
)

// Layouts accepted for the operator timestamp. The first two are what a
// datetime-local input submits and are read in the display location.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseCandidate validates c and converts it into a Reading without ID or
// CreatedAt. Text fields are trimmed. The first failing field is reported as
// a *types.ValidationError.
func ParseCandidate(c types.Candidate, loc *time.Location) (types.Reading, error) {
	if loc == nil {
		loc = time.UTC
	}

	ts, err := parseTimestamp(c.Tanggal, loc)
	if err != nil {
		return types.Reading{}, err
	}

	operator := strings.TrimSpace(c.Petugas)
	if operator == "" {
		return types.Reading{}, &types.ValidationError{Field: types.FieldOperator, Message: "Nama petugas wajib diisi"}
	}

	temp, err := parseDecimal(types.FieldTemperature, string(c.Suhu), "Suhu")
	if err != nil {
		return types.Reading{}, err
	}
	hum, err := parseDecimal(types.FieldHumidity, string(c.Kelembaban), "Kelembaban")
	if err != nil {
		return types.Reading{}, err
	}

	statuses := []struct {
		field types.Field
		label string
		value string
	}{
		{types.FieldAC, "Status AC", c.StatusAC},
		{types.FieldUPS, "Status UPS", c.StatusUPS},
		{types.FieldPower, "Status listrik", c.StatusListrik},
		{types.FieldServer, "Status server", c.StatusServer},
	}
	for _, s := range statuses {
		if strings.TrimSpace(s.value) == "" {
			return types.Reading{}, &types.ValidationError{Field: s.field, Message: s.label + " wajib dipilih"}
		}
	}

	return types.Reading{
		Timestamp:    ts,
		Operator:     operator,
		TemperatureC: temp,
		HumidityPct:  hum,
		ACStatus:     strings.TrimSpace(c.StatusAC),
		UPSStatus:    strings.TrimSpace(c.StatusUPS),
		PowerStatus:  strings.TrimSpace(c.StatusListrik),
		ServerStatus: strings.TrimSpace(c.StatusServer),
		Notes:        strings.TrimSpace(c.Catatan),
	}, nil
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &types.ValidationError{Field: types.FieldTimestamp, Message: "Tanggal & waktu wajib diisi"}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &types.ValidationError{Field: types.FieldTimestamp, Message: "Format tanggal & waktu tidak valid"}
}

// parseDecimal accepts a decimal point or, when no point is present, a
// decimal comma.
func parseDecimal(field types.Field, raw, label string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &types.ValidationError{Field: field, Message: label + " wajib diisi"}
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &types.ValidationError{Field: field, Message: label + " harus berupa angka"}
	}
	return v, nil
}
