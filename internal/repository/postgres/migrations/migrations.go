// Package migrations embeds the PostgreSQL schema managed by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
