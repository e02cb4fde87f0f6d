// Package migrations embebe el esquema PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
