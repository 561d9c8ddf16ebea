package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Reading is one submitted server-room observation. It is never mutated
// after the repository assigns its ID.
type Reading struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"tanggal"`
	Operator     string    `json:"petugas"`
	TemperatureC float64   `json:"suhu"`
	HumidityPct  float64   `json:"kelembaban"`
	ACStatus     string    `json:"status_ac"`
	UPSStatus    string    `json:"status_ups"`
	PowerStatus  string    `json:"status_listrik"`
	ServerStatus string    `json:"status_server"`
	Notes        string    `json:"catatan"`
	CreatedAt    time.Time `json:"created_at"`
}

// Candidate is an unparsed submission as entered in the form, posted as JSON
// or published over MQTT.
type Candidate struct {
	Tanggal       string      `json:"tanggal"`
	Petugas       string      `json:"petugas"`
	Suhu          NumericText `json:"suhu"`
	Kelembaban    NumericText `json:"kelembaban"`
	StatusAC      string      `json:"status_ac"`
	StatusUPS     string      `json:"status_ups"`
	StatusListrik string      `json:"status_listrik"`
	StatusServer  string      `json:"status_server"`
	Catatan       string      `json:"catatan"`
}

// NumericText keeps the raw text of a numeric field. It decodes from either a
// JSON number or a JSON string so that malformed input reaches validation
// instead of failing in the decoder.
type NumericText string

func (n *NumericText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericText(s)
	default:
		*n = NumericText(b)
	}
	return nil
}

// Severity is the display band of one field.
type Severity string

const (
	SeverityNormal  Severity = "normal"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Field names double as wire and column names.
type Field string

const (
	FieldTimestamp   Field = "tanggal"
	FieldOperator    Field = "petugas"
	FieldTemperature Field = "suhu"
	FieldHumidity    Field = "kelembaban"
	FieldAC          Field = "status_ac"
	FieldUPS         Field = "status_ups"
	FieldPower       Field = "status_listrik"
	FieldServer      Field = "status_server"
	FieldNotes       Field = "catatan"
)

// ClassifiedFields lists the fields that receive a severity band, in display order.
var ClassifiedFields = []Field{
	FieldTemperature,
	FieldHumidity,
	FieldAC,
	FieldUPS,
	FieldPower,
	FieldServer,
}

// Classification maps each classified field to its band.
type Classification map[Field]Severity

// Equipment status labels with a defined band. Any other label is Danger.
const (
	StatusNormal      = "Normal"
	StatusFaulty      = "Bermasalah"
	StatusOnline      = "Online"
	StatusMaintenance = "Maintenance"
)

// Advisory is a non-blocking notice raised when a submitted value is outside
// the wide sanity range. Advisories are returned to the operator, never stored.
type Advisory struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}
