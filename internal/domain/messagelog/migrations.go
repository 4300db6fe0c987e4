package messagelog

import (
	"embed"

	"github.com/ehr/hl7engine/internal/platform/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// NewMigrator returns a migrator for the message log tables.
func NewMigrator(conn db.DB) *db.Migrator {
	return db.NewMigrator(conn, migrationFS, "migrations")
}
