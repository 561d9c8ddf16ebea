package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"serverwatch/internal/modules/monitoring/service"
	"serverwatch/internal/modules/monitoring/types"
	"serverwatch/internal/modules/monitoring/views"
	"serverwatch/internal/mqtt"
)

var readingsCmd = &cobra.Command{
	Use:   "readings",
	Short: "Inspect and manage stored readings",
}

var (
	listJSON bool

	submitVia       string
	submitCandidate types.Candidate
	submitSuhu      string
	submitHumidity  string

	purgeForce bool
)

// mqttConnectTimeout bounds the broker connection for `readings submit --via mqtt`.
var mqttConnectTimeout = 5 * time.Second

var listReadingsCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the reading history, newest first",
	Args:  cobra.NoArgs,
	RunE:  runListReadings,
}

var submitReadingCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record a reading",
	Long: `Record a reading from the command line. With --via mqtt the reading is
published to MQTT_TOPIC instead and stored by the running server.`,
	Args: cobra.NoArgs,
	RunE: runSubmitReading,
}

var deleteReadingCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteReading,
}

var purgeReadingsCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete ALL readings",
	Long:  `Delete every stored reading. Asks for confirmation twice unless --force is given.`,
	Args:  cobra.NoArgs,
	RunE:  runPurgeReadings,
}

func init() {
	listReadingsCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")

	f := submitReadingCmd.Flags()
	f.StringVar(&submitVia, "via", "db", "delivery path: db or mqtt")
	f.StringVar(&submitCandidate.Tanggal, "tanggal", "", "date and time, e.g. 2025-03-04T09:15 (default now)")
	f.StringVar(&submitCandidate.Petugas, "petugas", "", "operator name")
	f.StringVar(&submitSuhu, "suhu", "", "temperature in °C")
	f.StringVar(&submitHumidity, "kelembaban", "", "relative humidity in %")
	f.StringVar(&submitCandidate.StatusAC, "ac", types.StatusNormal, "AC status")
	f.StringVar(&submitCandidate.StatusUPS, "ups", types.StatusNormal, "UPS status")
	f.StringVar(&submitCandidate.StatusListrik, "listrik", types.StatusNormal, "power status")
	f.StringVar(&submitCandidate.StatusServer, "server", types.StatusOnline, "server status")
	f.StringVar(&submitCandidate.Catatan, "catatan", "", "notes")

	purgeReadingsCmd.Flags().BoolVar(&purgeForce, "force", false, "skip the confirmation prompts")

	readingsCmd.AddCommand(listReadingsCmd, submitReadingCmd, deleteReadingCmd, purgeReadingsCmd)
	rootCmd.AddCommand(readingsCmd)
}

func runListReadings(cmd *cobra.Command, _ []string) error {
	svc, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	history, err := svc.History(cmd.Context())
	if err != nil {
		return err
	}
	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}
	return printTable(cmd.OutOrStdout(), views.NewTableView(history, svc.Location()))
}

func printTable(w io.Writer, table views.TableView) error {
	if len(table.Rows) == 0 {
		_, err := fmt.Fprintln(w, "Belum ada data")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NO\tID\tTANGGAL\tPETUGAS\tSUHU\tKELEMBABAN\tAC\tUPS\tLISTRIK\tSERVER\tCATATAN")
	for _, r := range table.Rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.No, r.ID, r.When, r.Operator, r.Temperature, r.Humidity,
			r.AC, r.UPS, r.Power, r.Server, r.Notes)
	}
	return tw.Flush()
}

func runSubmitReading(cmd *cobra.Command, _ []string) error {
	c := submitCandidate
	c.Suhu = types.NumericText(submitSuhu)
	c.Kelembaban = types.NumericText(submitHumidity)
	if c.Tanggal == "" {
		c.Tanggal = time.Now().In(cfg.DisplayLocation).Format(views.InputLayout)
	}

	switch submitVia {
	case "db":
		return submitDirect(cmd, c)
	case "mqtt":
		return submitMQTT(cmd, c)
	default:
		return fmt.Errorf("invalid --via %q (allowed: db, mqtt)", submitVia)
	}
}

func submitDirect(cmd *cobra.Command, c types.Candidate) error {
	svc, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := svc.Submit(cmd.Context(), service.SourceCLI, c)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Data berhasil disimpan! (id %d)\n", res.Reading.ID)
	for _, a := range res.Advisories {
		fmt.Fprintln(out, a.Message)
	}
	return nil
}

// submitMQTT only checks the payload shape; the server validates and stores it.
func submitMQTT(cmd *cobra.Command, c types.Candidate) error {
	if _, err := service.ParseCandidate(c, cfg.DisplayLocation); err != nil {
		return err
	}
	pub := mqtt.NewPublisher(cfg, nil)
	defer pub.Disconnect()

	connectCtx, cancel := context.WithTimeout(cmd.Context(), mqttConnectTimeout)
	err := pub.Connect(connectCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("mqtt broker %s:%d unreachable after %s", cfg.MQTTBroker, cfg.MQTTPort, mqttConnectTimeout)
		}
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	if err := pub.Publish(cmd.Context(), c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reading published to %s\n", cfg.MQTTTopic)
	return nil
}

func runDeleteReading(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid reading id %q (expected positive integer)", args[0])
	}

	svc, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.Remove(cmd.Context(), id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("reading %d not found", id)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reading %d deleted\n", id)
	return nil
}

func runPurgeReadings(cmd *cobra.Command, _ []string) error {
	if !purgeForce {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("refusing to purge without a terminal; pass --force")
		}
		if !confirmPurge(cmd.InOrStdin(), cmd.OutOrStdout()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Dibatalkan")
			return nil
		}
	}

	svc, closeStore, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.RemoveAll(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Semua data berhasil dihapus")
	return nil
}

// confirmPurge asks twice; both answers must be yes.
func confirmPurge(in io.Reader, out io.Writer) bool {
	reader := bufio.NewReader(in)
	prompts := []string{
		"Apakah Anda yakin ingin menghapus SEMUA data? [y/N]: ",
		"Data yang dihapus tidak dapat dikembalikan. Lanjutkan? [y/N]: ",
	}
	for _, p := range prompts {
		fmt.Fprint(out, p)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			fmt.Fprintln(out)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "ya":
		default:
			return false
		}
	}
	return true
}
