package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"

	"github.com/ConfabulousDev/wakalog/internal/logger"
)

var tracer = otel.Tracer("wakalog/db")

// Options tunes the connection pool and per-call deadlines.
type Options struct {
	// MaxOpenConns bounds the pool. The query service uses 5; a one-shot
	// ingestion run needs no more than 2.
	MaxOpenConns int
	// QueryTimeout is applied to every store call that has no earlier deadline.
	QueryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 5
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 10 * time.Second
	}
	return o
}

// DB wraps a PostgreSQL database connection
type DB struct {
	conn         *sql.DB
	queryTimeout time.Duration
}

// Connect establishes a connection to PostgreSQL
func Connect(dsn string, opts Options) (*DB, error) {
	opts = opts.withDefaults()

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.QueryTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxOpenConns)
	conn.SetConnMaxLifetime(20 * time.Minute)

	return &DB{conn: conn, queryTimeout: opts.QueryTimeout}, nil
}

// ConnectWithRetry keeps trying Connect once a second until it succeeds or
// ctx is done. Used at server start when the database may still be booting.
func ConnectWithRetry(ctx context.Context, dsn string, opts Options) (*DB, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("giving up after %d attempts: %w", attempt-1, lastErr)
			}
			return nil, err
		}

		database, err := Connect(dsn, opts)
		if err == nil {
			return database, nil
		}
		lastErr = err
		logger.Warn("database not ready, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Exec executes a query without returning rows (for testing/migrations)
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// Conn returns the underlying *sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}
