// Package migrations embeds SQL migration files into the binary, so schema
// setup needs no files on the target filesystem.
package migrations

import (
	"embed"

	"github.com/quaymark/tradegate/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
