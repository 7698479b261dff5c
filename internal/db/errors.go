package db

import "errors"

// Sentinel errors for type-safe error checking
// Use errors.Is() instead of string comparison
var (
	// ErrSummaryNotFound means no row exists for the requested date.
	ErrSummaryNotFound = errors.New("summary not found")

	// ErrWrite wraps any failure to persist a summary row.
	ErrWrite = errors.New("summary write failed")
)
