// Package migrations embeds the SQL migration files into the binary so the
// daemon can create its tables without the files on disk.
package migrations

import (
	"embed"

	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
