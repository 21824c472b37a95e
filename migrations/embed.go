// Package migrations embeds the journal schema into the binary.
//
// This lets the daemon create and upgrade its SQLite journal without
// needing the SQL files present on the filesystem.
package migrations

import (
	"embed"

	"github.com/guardiansim/ges-core/internal/history"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded schema files with the history package.
	history.MigrationsFS = migrationsFS
	history.MigrationsDir = "." // Files are at root of embedded FS
}
