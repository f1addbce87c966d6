package demo

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Tables lists the demo tables in creation order.
var Tables = []string{
	"geo_continent",
	"geo_country",
	"geo_city",
	"people_person",
	"people_emergency_contact",
}

// Migrations returns the embedded migration source.
func Migrations() (source.Driver, error) {
	return iofs.New(migrationFiles, "migrations")
}

// Migrate applies every pending migration. The connection is borrowed from
// db and returned to the pool afterwards.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	src, err := Migrations()
	if err != nil {
		return fmt.Errorf("demo: migrations source: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("demo: migrate: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = src.Close()
		_ = conn.Close()
		return fmt.Errorf("demo: migrate: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("demo: migrate: %w", err)
	}

	upErr := m.Up()
	srcErr, dbErr := m.Close()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("demo: migrate: %w", upErr)
	}
	if err := errors.Join(srcErr, dbErr); err != nil {
		return fmt.Errorf("demo: migrate close: %w", err)
	}
	return nil
}

// ResetSequences moves every id sequence to the current maximum id, so rows
// inserted with explicit keys do not collide with later inserts.
func ResetSequences(ctx context.Context, db *sqlx.DB) error {
	for _, table := range Tables {
		stmt := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s`,
			table,
		)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("demo: reset %s sequence: %w", table, err)
		}
	}
	return nil
}
