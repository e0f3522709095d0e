// Package migrations embeds the local-store schema migrations applied by
// goose at startup. Migrations are additive only: existing offline data
// must survive every upgrade.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
