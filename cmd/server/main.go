package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/honeycombio/otel-config-go/otelconfig"

	"github.com/ConfabulousDev/wakalog/internal/api"
	"github.com/ConfabulousDev/wakalog/internal/config"
	"github.com/ConfabulousDev/wakalog/internal/logger"
)

var version string

func main() {
	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		// Non-fatal: continue without tracing if OTEL env vars not set
		logger.Warn("failed to configure OpenTelemetry", "error", err)
	} else {
		defer otelShutdown()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	defer logger.UseFile(logger.FileOptions{Path: cfg.LogFile}).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx, cfg, version); err != nil {
		if errors.Is(err, config.ErrMissingConfig) {
			logger.Fatal("missing required configuration", "error", err)
		}
		logger.Fatal("server exited", "error", err)
	}
}
