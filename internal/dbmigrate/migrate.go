// Package dbmigrate bootstraps the journal/auth/surrounding/pool schemas
// shared by every binary, via golang-migrate against an embedded SQL
// source. Grounded on the teacher's
// pkg/store/metadata/postgres/migrate.go (same library, same
// sql.Open("pgx", ...)+iofs.New pattern), generalized from a single
// content-store schema to the schema set this domain persists through.
package dbmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/geoplaque/satellite/internal/dbmigrate/migrations"
	"github.com/geoplaque/satellite/internal/logger"
)

// Run applies every pending migration against dsn. golang-migrate takes
// an advisory lock so concurrent Run calls from multiple binaries
// starting up at once serialize rather than race.
func Run(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("dbmigrate: open connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("dbmigrate: ping: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "satellite",
	})
	if err != nil {
		return fmt.Errorf("dbmigrate: postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("dbmigrate: source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("dbmigrate: migrate instance: %w", err)
	}

	logger.InfoCtx(ctx, "applying database migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dbmigrate: up: %w", err)
	} else if errors.Is(err, migrate.ErrNoChange) {
		logger.InfoCtx(ctx, "no migrations to apply")
		return nil
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("dbmigrate: version: %w", err)
	}
	if dirty {
		logger.WarnCtx(ctx, "database schema is dirty, manual intervention may be required", "version", version)
	} else {
		logger.InfoCtx(ctx, "migrations applied", "version", version)
	}
	return nil
}
