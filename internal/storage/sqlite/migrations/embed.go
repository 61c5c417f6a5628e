package migrations

import "embed"

// FS contains embedded SQLite migrations for session snapshots and results.
//
//go:embed *.sql
var FS embed.FS
