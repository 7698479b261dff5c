// Package migrations provides embedded SQL migration files.
// Both `wakalog migrate` and the integration tests apply them through db.Migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
