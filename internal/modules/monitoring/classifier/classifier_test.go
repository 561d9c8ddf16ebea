package classifier

import (
	"math"
	"testing"

	"serverwatch/internal/modules/monitoring/types"
)

func TestTemperature(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want types.Severity
	}{
		{name: "lower bound", in: 20, want: types.SeverityNormal},
		{name: "middle", in: 22.5, want: types.SeverityNormal},
		{name: "upper bound", in: 25, want: types.SeverityNormal},
		{name: "just above normal", in: 25.01, want: types.SeverityWarning},
		{name: "warning upper bound", in: 27, want: types.SeverityWarning},
		{name: "above warning", in: 27.1, want: types.SeverityDanger},
		{name: "just below normal", in: 19.99, want: types.SeverityDanger},
		{name: "cold", in: 10, want: types.SeverityDanger},
		{name: "negative", in: -5, want: types.SeverityDanger},
		{name: "nan", in: math.NaN(), want: types.SeverityDanger},
		{name: "inf", in: math.Inf(1), want: types.SeverityDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Temperature(tt.in); got != tt.want {
				t.Errorf("Temperature(%v) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHumidity(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want types.Severity
	}{
		{name: "lower bound", in: 40, want: types.SeverityNormal},
		{name: "upper bound", in: 60, want: types.SeverityNormal},
		{name: "low warning bound", in: 35, want: types.SeverityWarning},
		{name: "low warning", in: 39.9, want: types.SeverityWarning},
		{name: "high warning", in: 60.5, want: types.SeverityWarning},
		{name: "high warning bound", in: 65, want: types.SeverityWarning},
		{name: "too dry", in: 34.9, want: types.SeverityDanger},
		{name: "too wet", in: 65.1, want: types.SeverityDanger},
		{name: "nan", in: math.NaN(), want: types.SeverityDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Humidity(tt.in); got != tt.want {
				t.Errorf("Humidity(%v) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Sweep the whole range in small steps and compare against the band definitions.
func TestBands_Sweep(t *testing.T) {
	for i := -100; i <= 1000; i++ {
		v := float64(i) / 10
		wantTemp := types.SeverityDanger
		if v >= 20 && v <= 25 {
			wantTemp = types.SeverityNormal
		} else if v > 25 && v <= 27 {
			wantTemp = types.SeverityWarning
		}
		if got := Temperature(v); got != wantTemp {
			t.Fatalf("Temperature(%v) = %q; want %q", v, got, wantTemp)
		}

		wantHum := types.SeverityDanger
		if v >= 40 && v <= 60 {
			wantHum = types.SeverityNormal
		} else if (v >= 35 && v < 40) || (v > 60 && v <= 65) {
			wantHum = types.SeverityWarning
		}
		if got := Humidity(v); got != wantHum {
			t.Fatalf("Humidity(%v) = %q; want %q", v, got, wantHum)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) types.Severity
		in   string
		want types.Severity
	}{
		{name: "equipment normal", fn: Equipment, in: "Normal", want: types.SeverityNormal},
		{name: "equipment faulty", fn: Equipment, in: "Bermasalah", want: types.SeverityWarning},
		{name: "equipment off", fn: Equipment, in: "Mati", want: types.SeverityDanger},
		{name: "equipment case sensitive", fn: Equipment, in: "normal", want: types.SeverityDanger},
		{name: "power normal", fn: Power, in: "Normal", want: types.SeverityNormal},
		{name: "power faulty has no warning", fn: Power, in: "Bermasalah", want: types.SeverityDanger},
		{name: "power outage", fn: Power, in: "Padam", want: types.SeverityDanger},
		{name: "server online", fn: Server, in: "Online", want: types.SeverityNormal},
		{name: "server maintenance", fn: Server, in: "Maintenance", want: types.SeverityWarning},
		{name: "server offline", fn: Server, in: "Offline", want: types.SeverityDanger},
		{name: "server empty", fn: Server, in: "", want: types.SeverityDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	r := types.Reading{
		TemperatureC: 26,
		HumidityPct:  50,
		ACStatus:     "Normal",
		UPSStatus:    "Bermasalah",
		PowerStatus:  "Padam",
		ServerStatus: "Maintenance",
	}
	got := Classify(r)
	want := types.Classification{
		types.FieldTemperature: types.SeverityWarning,
		types.FieldHumidity:    types.SeverityNormal,
		types.FieldAC:          types.SeverityNormal,
		types.FieldUPS:         types.SeverityWarning,
		types.FieldPower:       types.SeverityDanger,
		types.FieldServer:      types.SeverityWarning,
	}
	if len(got) != len(types.ClassifiedFields) {
		t.Fatalf("Classify returned %d fields; want %d", len(got), len(types.ClassifiedFields))
	}
	for field, band := range want {
		if got[field] != band {
			t.Errorf("Classify()[%s] = %q; want %q", field, got[field], band)
		}
	}
}

func TestAdvisories(t *testing.T) {
	tests := []struct {
		name       string
		temp, hum  float64
		wantFields []types.Field
	}{
		{name: "in range", temp: 22, hum: 50, wantFields: nil},
		{name: "hot", temp: 32, hum: 50, wantFields: []types.Field{types.FieldTemperature}},
		{name: "humid", temp: 22, hum: 80, wantFields: []types.Field{types.FieldHumidity}},
		{name: "both", temp: 10, hum: 20, wantFields: []types.Field{types.FieldTemperature, types.FieldHumidity}},
		{name: "bounds are inclusive", temp: 15, hum: 70, wantFields: nil},
		{name: "upper bounds inclusive", temp: 30, hum: 30, wantFields: nil},
		{name: "danger band but no advisory", temp: 28, hum: 68, wantFields: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advisories(tt.temp, tt.hum)
			if got == nil {
				t.Fatal("Advisories returned nil; want non-nil slice")
			}
			if len(got) != len(tt.wantFields) {
				t.Fatalf("Advisories(%v, %v) = %v; want fields %v", tt.temp, tt.hum, got, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if got[i].Field != f {
					t.Errorf("advisory[%d].Field = %q; want %q", i, got[i].Field, f)
				}
				if got[i].Message == "" {
					t.Errorf("advisory[%d] has empty message", i)
				}
			}
		})
	}
}
