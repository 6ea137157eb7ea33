package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending migrations for the dialect. Migrations are
// embedded in the binary and tracked in goose's version table, so running
// it on every start is safe.
func Migrate(ctx context.Context, conn *sql.DB, dialect Dialect) error {
	gooseDialect := goose.DialectSQLite3
	if dialect == Postgres {
		gooseDialect = goose.DialectPostgres
	}

	dir, err := fs.Sub(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("locating %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gooseDialect, conn, dir)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
