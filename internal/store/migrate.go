package store

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema to the latest version. Migrations are compiled
// into the binary, so the worker and server can migrate from any working
// directory.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetDialect("postgres")
	goose.SetTableName("janata_schema_migrations")
	return goose.UpContext(ctx, db, "migrations")
}
