package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"serverwatch/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the HTTP server with the dashboard, the JSON API, the websocket feed
and, when MQTT_ENABLED is set, the MQTT subscriber.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	err := app.Run(cmd.Context(), cfg)
	slog.Info("shutting down")
	return err
}
