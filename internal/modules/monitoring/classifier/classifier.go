// Package classifier maps reading values to display severity bands and raises
// submission advisories. All functions are pure and safe for concurrent use.
package classifier

import (
	"serverwatch/internal/modules/monitoring/types"
)

// Advisory ranges are wider than the display bands; they only warn the
// operator at submission time.
const (
	advisoryTempMin     = 15.0
	advisoryTempMax     = 30.0
	advisoryHumidityMin = 30.0
	advisoryHumidityMax = 70.0
)

const (
	TemperatureAdvisory = "Peringatan: Suhu di luar rentang normal (20-25°C)"
	HumidityAdvisory    = "Peringatan: Kelembaban di luar rentang normal (40-60%)"
)

// Classify returns the band of every classified field of r.
func Classify(r types.Reading) types.Classification {
	return types.Classification{
		types.FieldTemperature: Temperature(r.TemperatureC),
		types.FieldHumidity:    Humidity(r.HumidityPct),
		types.FieldAC:          Equipment(r.ACStatus),
		types.FieldUPS:         Equipment(r.UPSStatus),
		types.FieldPower:       Power(r.PowerStatus),
		types.FieldServer:      Server(r.ServerStatus),
	}
}

// Temperature: [20,25] normal, (25,27] warning, anything else (NaN included) danger.
func Temperature(c float64) types.Severity {
	switch {
	case c >= 20 && c <= 25:
		return types.SeverityNormal
	case c > 25 && c <= 27:
		return types.SeverityWarning
	default:
		return types.SeverityDanger
	}
}

// Humidity: [40,60] normal, [35,40) or (60,65] warning, anything else danger.
func Humidity(pct float64) types.Severity {
	switch {
	case pct >= 40 && pct <= 60:
		return types.SeverityNormal
	case (pct >= 35 && pct < 40) || (pct > 60 && pct <= 65):
		return types.SeverityWarning
	default:
		return types.SeverityDanger
	}
}

// Equipment classifies AC and UPS labels.
func Equipment(label string) types.Severity {
	switch label {
	case types.StatusNormal:
		return types.SeverityNormal
	case types.StatusFaulty:
		return types.SeverityWarning
	default:
		return types.SeverityDanger
	}
}

// Power has no warning band.
func Power(label string) types.Severity {
	if label == types.StatusNormal {
		return types.SeverityNormal
	}
	return types.SeverityDanger
}

func Server(label string) types.Severity {
	switch label {
	case types.StatusOnline:
		return types.SeverityNormal
	case types.StatusMaintenance:
		return types.SeverityWarning
	default:
		return types.SeverityDanger
	}
}

// Advisories returns the submission notices for the given values. The two
// checks are independent; the result is empty when both values are in range.
func Advisories(temperatureC, humidityPct float64) []types.Advisory {
	out := []types.Advisory{}
	if !(temperatureC >= advisoryTempMin && temperatureC <= advisoryTempMax) {
		out = append(out, types.Advisory{Field: types.FieldTemperature, Message: TemperatureAdvisory})
	}
	if !(humidityPct >= advisoryHumidityMin && humidityPct <= advisoryHumidityMax) {
		out = append(out, types.Advisory{Field: types.FieldHumidity, Message: HumidityAdvisory})
	}
	return out
}
