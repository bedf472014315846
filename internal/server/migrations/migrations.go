// Package migrations contains the embedded goose SQL migrations of the
// server database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
