package views

import (
	"strconv"
	"time"

	"serverwatch/internal/modules/monitoring/classifier"
	"serverwatch/internal/modules/monitoring/service"
	"serverwatch/internal/modules/monitoring/types"
)

const (
	// DisplayLayout renders a reading's date and time in the status card and table.
	DisplayLayout = "02/01/2006, 15.04"
	// InputLayout is the value format of a datetime-local input.
	InputLayout = "2006-01-02T15:04"
)

var (
	EquipmentOptions = []string{"Normal", "Bermasalah", "Mati"}
	PowerOptions     = []string{"Normal", "Padam"}
	ServerOptions    = []string{"Online", "Maintenance", "Offline"}
)

type DashboardData struct {
	Title  string
	Status StatusView
	Form   FormView
	Table  TableView
}

type StatusCard struct {
	Label    string
	Value    string
	Severity types.Severity
}

type StatusView struct {
	HasReading bool
	Operator   string
	When       string
	Cards      []StatusCard
}

type TableRow struct {
	No          int
	ID          int64
	When        string
	Operator    string
	Temperature string
	Humidity    string
	AC          string
	UPS         string
	Power       string
	Server      string
	Notes       string

	TemperatureSeverity types.Severity
	HumiditySeverity    types.Severity
	ACSeverity          types.Severity
	UPSSeverity         types.Severity
	PowerSeverity       types.Severity
	ServerSeverity      types.Severity
}

type TableView struct {
	Rows []TableRow
}

// FormView re-renders the entry form. Values holds what the operator typed so
// a rejected submission keeps its input.
type FormView struct {
	Values     types.Candidate
	Error      string
	ErrorField types.Field
	Advisories []types.Advisory
	Success    string

	EquipmentOptions []string
	PowerOptions     []string
	ServerOptions    []string
}

// NewDashboardData builds the full page model from one snapshot.
func NewDashboardData(s service.Snapshot, now time.Time, loc *time.Location) DashboardData {
	return DashboardData{
		Title:  "Monitoring Ruang Server",
		Status: NewStatusView(s, loc),
		Form:   NewFormView(now),
		Table:  NewTableView(s.History, loc),
	}
}

func NewStatusView(s service.Snapshot, loc *time.Location) StatusView {
	if s.Latest == nil {
		return StatusView{}
	}
	r := s.Latest
	return StatusView{
		HasReading: true,
		Operator:   r.Operator,
		When:       r.Timestamp.In(loc).Format(DisplayLayout),
		Cards: []StatusCard{
			{Label: "Suhu", Value: FormatTemperature(r.TemperatureC), Severity: s.Bands[types.FieldTemperature]},
			{Label: "Kelembaban", Value: FormatHumidity(r.HumidityPct), Severity: s.Bands[types.FieldHumidity]},
			{Label: "AC", Value: r.ACStatus, Severity: s.Bands[types.FieldAC]},
			{Label: "UPS", Value: r.UPSStatus, Severity: s.Bands[types.FieldUPS]},
			{Label: "Listrik", Value: r.PowerStatus, Severity: s.Bands[types.FieldPower]},
			{Label: "Server", Value: r.ServerStatus, Severity: s.Bands[types.FieldServer]},
		},
	}
}

func NewTableView(history []types.Reading, loc *time.Location) TableView {
	rows := make([]TableRow, 0, len(history))
	for i, r := range history {
		notes := r.Notes
		if notes == "" {
			notes = "-"
		}
		bands := classifier.Classify(r)
		rows = append(rows, TableRow{
			No:          i + 1,
			ID:          r.ID,
			When:        r.Timestamp.In(loc).Format(DisplayLayout),
			Operator:    r.Operator,
			Temperature: FormatTemperature(r.TemperatureC),
			Humidity:    FormatHumidity(r.HumidityPct),
			AC:          r.ACStatus,
			UPS:         r.UPSStatus,
			Power:       r.PowerStatus,
			Server:      r.ServerStatus,
			Notes:       notes,

			TemperatureSeverity: bands[types.FieldTemperature],
			HumiditySeverity:    bands[types.FieldHumidity],
			ACSeverity:          bands[types.FieldAC],
			UPSSeverity:         bands[types.FieldUPS],
			PowerSeverity:       bands[types.FieldPower],
			ServerSeverity:      bands[types.FieldServer],
		})
	}
	return TableView{Rows: rows}
}

// NewFormView returns an empty form with the timestamp preset to now.
func NewFormView(now time.Time) FormView {
	return WithOptions(FormView{
		Values: types.Candidate{Tanggal: now.Format(InputLayout)},
	})
}

// WithOptions fills the status choices of f.
func WithOptions(f FormView) FormView {
	f.EquipmentOptions = EquipmentOptions
	f.PowerOptions = PowerOptions
	f.ServerOptions = ServerOptions
	return f
}

func FormatTemperature(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64) + "°C"
}

func FormatHumidity(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

func severityClass(s types.Severity) string {
	switch s {
	case types.SeverityNormal, types.SeverityWarning, types.SeverityDanger:
		return "sev-" + string(s)
	default:
		return "sev-unknown"
	}
}

// Invalid reports whether the last submission failed on field.
func (f FormView) Invalid(field string) bool {
	return f.Error != "" && string(f.ErrorField) == field
}
