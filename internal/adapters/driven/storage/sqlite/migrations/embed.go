// Package migrations embeds the SQL migrations for the harvest history database.
package migrations

import "embed"

// FS holds the NNN_name.up.sql files, applied in order.
//
//go:embed *.sql
var FS embed.FS
