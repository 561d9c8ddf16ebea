package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"serverwatch/internal/modules/monitoring/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reading history to an .xlsx report",
	Long: `Write every stored reading, newest first, to a spreadsheet report.
Without -o the file is named Monitoring_Server_<date>_<time>.xlsx in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	svc, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	history, err := svc.History(cmd.Context())
	if err != nil {
		return err
	}

	now := svc.Now()
	var buf bytes.Buffer
	if err := export.Write(&buf, history, now, svc.Location()); err != nil {
		if errors.Is(err, export.ErrNoData) {
			return errors.New("tidak ada data untuk diekspor")
		}
		return err
	}

	path := exportOutput
	if path == "" {
		path = export.Filename(now)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d readings to %s\n", len(history), path)
	return nil
}
