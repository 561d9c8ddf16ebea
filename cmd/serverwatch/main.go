package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"serverwatch/internal/config"
	"serverwatch/internal/logging"
)

const appName = "serverwatch"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

// cfg is loaded once before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Server room monitoring dashboard",
	Long: `serverwatch records periodic server room checks (temperature, humidity
and equipment status), serves a live dashboard and exports reports.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	cfg = loaded

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)
	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
