package main

import (
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/api"
	"github.com/ConfabulousDev/wakalog/internal/logger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ranking query service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
		if err != nil {
			logger.Warn("failed to configure OpenTelemetry", "error", err)
		} else {
			defer otelShutdown()
		}

		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		return api.Run(cmd.Context(), cfg, version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides PORT)")
}
