package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ConfabulousDev/wakalog/internal/analytics"
	"github.com/ConfabulousDev/wakalog/internal/config"
	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/ratelimit"
)

// Run serves the query service until ctx is cancelled, then shuts down
// gracefully. The database may still be starting; connecting is retried
// for up to a minute.
func Run(ctx context.Context, cfg *config.Config, version string) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
	database, err := db.ConnectWithRetry(connectCtx, cfg.DatabaseURL, db.Options{
		MaxOpenConns: cfg.DBMaxConns,
		QueryTimeout: cfg.QueryTimeout,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	store := analytics.NewStore(database.Conn(),
		analytics.WithExcludedTitles(cfg.RankingExcludeTitles),
		analytics.WithQueryTimeout(cfg.QueryTimeout))

	opts := Options{
		Prefix:         cfg.Prefix,
		Static:         StaticDir(cfg.StaticDir),
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if cfg.RateLimitRPS > 0 {
		limiter := ratelimit.NewKeyedLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer limiter.Stop()
		opts.Limiter = limiter
	}

	router := NewServer(store, database, opts).SetupRoutes()
	handler := otelhttp.NewHandler(router, "wakalog-server")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "prefix", cfg.Prefix, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
