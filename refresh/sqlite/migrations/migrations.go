// Package migrations embeds the SQLite schema for the refresh record store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
