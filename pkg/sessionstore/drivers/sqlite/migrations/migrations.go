// Package migrations embeds the sqlite session schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
