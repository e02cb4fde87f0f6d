// Package migrations embebe el esquema SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
