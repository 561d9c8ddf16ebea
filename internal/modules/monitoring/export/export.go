// Package export writes the reading history as an .xlsx report.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"serverwatch/internal/modules/monitoring/types"
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no readings to export")

const (
	SheetName   = "Monitoring Server"
	Title       = "LAPORAN MONITORING RUANG SERVER"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	dateLayout = "02/01/2006, 15.04.05"
	// first data row; rows 1-3 are title, export date and a blank spacer, row 4 the header
	firstDataRow = 5
)

var headers = []string{
	"No",
	"Tanggal & Waktu",
	"Petugas",
	"Suhu (°C)",
	"Kelembaban (%)",
	"Status AC",
	"Status UPS",
	"Status Listrik",
	"Status Server",
	"Catatan",
}

var columnWidths = []float64{5, 20, 20, 12, 15, 15, 15, 15, 15, 30}

// Filename returns the download name for a report generated at t.
func Filename(t time.Time) string {
	return "Monitoring_Server_" + t.Format("2006-01-02_1504") + ".xlsx"
}

// Write renders history (newest first) into a workbook and writes it to w.
// Dates are shown in loc.
func Write(w io.Writer, history []types.Reading, exportedAt time.Time, loc *time.Location) error {
	if len(history) == 0 {
		return ErrNoData
	}
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeHeader(f, exportedAt.In(loc)); err != nil {
		return err
	}

	for i, r := range history {
		notes := r.Notes
		if notes == "" {
			notes = "-"
		}
		row := []any{
			i + 1,
			r.Timestamp.In(loc).Format(dateLayout),
			r.Operator,
			r.TemperatureC,
			r.HumidityPct,
			r.ACStatus,
			r.UPSStatus,
			r.PowerStatus,
			r.ServerStatus,
			notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, firstDataRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, exportedAt time.Time) error {
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}

	if err := f.SetCellValue(SheetName, "A1", Title); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, "A2", "Tanggal Export: "+exportedAt.Format(dateLayout)); err != nil {
		return err
	}
	for _, row := range []string{"1", "2"} {
		if err := f.MergeCell(SheetName, "A"+row, lastCol+row); err != nil {
			return fmt.Errorf("merge title row %s: %w", row, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", titleStyle); err != nil {
		return err
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A4", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A4", lastCol+"4", headerStyle); err != nil {
		return err
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
