package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/geo-guardian/internal/config"
	"github.com/oshokin/geo-guardian/internal/service/server"
	"github.com/oshokin/geo-guardian/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for running the geo-guardian server.
	rootCmd = &cobra.Command{
		Use:   "geo-guardian [listen-address]",
		Short: "Run the location tracking and anomaly alerting server.",
		Long: `Starts the geo-guardian server that ingests OwnTracks location reports,
derives zone entry and exit events, scores them against fitted anomaly
classifiers and drives the confirmation workflow over SMS and voice.

Reports arrive over HTTP, or over MQTT when a broker is configured.
Listen address can be provided as argument to override config (e.g., :9090).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the geo-guardian CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
}
