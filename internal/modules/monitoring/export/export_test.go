package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"serverwatch/internal/modules/monitoring/types"
)

func history() []types.Reading {
	return []types.Reading{
		{
			ID:           2,
			Timestamp:    time.Date(2025, 3, 4, 9, 15, 0, 0, time.UTC),
			Operator:     "Sari",
			TemperatureC: 26.5,
			HumidityPct:  55,
			ACStatus:     "Bermasalah",
			UPSStatus:    "Normal",
			PowerStatus:  "Normal",
			ServerStatus: "Online",
		},
		{
			ID:           1,
			Timestamp:    time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC),
			Operator:     "Budi",
			TemperatureC: 22,
			HumidityPct:  45,
			ACStatus:     "Normal",
			UPSStatus:    "Normal",
			PowerStatus:  "Padam",
			ServerStatus: "Maintenance",
			Notes:        "genset aktif",
		},
	}
}

func openWorkbook(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(SheetName, axis)
	if err != nil {
		t.Fatalf("GetCellValue(%s): %v", axis, err)
	}
	return v
}

func TestWrite_Layout(t *testing.T) {
	var buf bytes.Buffer
	exportedAt := time.Date(2025, 3, 4, 3, 5, 9, 0, time.UTC)
	wib := time.FixedZone("WIB", 7*60*60)
	if err := Write(&buf, history(), exportedAt, wib); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f := openWorkbook(t, buf.Bytes())

	if got := f.GetSheetName(0); got != SheetName {
		t.Fatalf("sheet name = %q; want %q", got, SheetName)
	}

	tests := []struct {
		axis string
		want string
	}{
		{axis: "A1", want: Title},
		{axis: "A2", want: "Tanggal Export: 04/03/2025, 10.05.09"},
		{axis: "A3", want: ""},
		{axis: "A4", want: "No"},
		{axis: "B4", want: "Tanggal & Waktu"},
		{axis: "D4", want: "Suhu (°C)"},
		{axis: "J4", want: "Catatan"},
		{axis: "A5", want: "1"},
		{axis: "B5", want: "04/03/2025, 16.15.00"},
		{axis: "C5", want: "Sari"},
		{axis: "D5", want: "26.5"},
		{axis: "E5", want: "55"},
		{axis: "F5", want: "Bermasalah"},
		{axis: "J5", want: "-"},
		{axis: "A6", want: "2"},
		{axis: "G6", want: "Normal"},
		{axis: "H6", want: "Padam"},
		{axis: "I6", want: "Maintenance"},
		{axis: "J6", want: "genset aktif"},
	}
	for _, tt := range tests {
		if got := cell(t, f, tt.axis); got != tt.want {
			t.Errorf("%s = %q; want %q", tt.axis, got, tt.want)
		}
	}

	merges, err := f.GetMergeCells(SheetName)
	if err != nil {
		t.Fatalf("GetMergeCells: %v", err)
	}
	gotMerges := map[string]bool{}
	for _, m := range merges {
		gotMerges[m.GetStartAxis()+":"+m.GetEndAxis()] = true
	}
	for _, want := range []string{"A1:J1", "A2:J2"} {
		if !gotMerges[want] {
			t.Errorf("merge %s missing; got %v", want, gotMerges)
		}
	}

	for col, want := range map[string]float64{"A": 5, "B": 20, "D": 12, "J": 30} {
		w, err := f.GetColWidth(SheetName, col)
		if err != nil {
			t.Fatalf("GetColWidth(%s): %v", col, err)
		}
		if w != want {
			t.Errorf("width of %s = %v; want %v", col, w, want)
		}
	}
}

func TestWrite_NoData(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, time.Now(), time.UTC); !errors.Is(err, ErrNoData) {
		t.Fatalf("Write(empty) error = %v; want ErrNoData", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("Write(empty) wrote %d bytes", buf.Len())
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2025, 3, 4, 9, 7, 0, 0, time.UTC))
	if want := "Monitoring_Server_2025-03-04_0907.xlsx"; got != want {
		t.Fatalf("Filename = %q; want %q", got, want)
	}
}
