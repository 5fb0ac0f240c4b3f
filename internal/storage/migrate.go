package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// migrateSQLite applies pending migrations to an open SQLite database.
// The sqlite driver closes the database it wraps, so the migrate instance
// is left open and only its source is released.
func migrateSQLite(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations/sqlite")
	if err != nil {
		return err
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, BackendSQLite, driver)
	if err != nil {
		return err
	}
	return up(m)
}

// migratePostgres applies pending migrations over a dedicated connection
// pool, which is closed afterwards.
func migratePostgres(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationFS, "migrations/postgres")
	if err != nil {
		db.Close()
		return err
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		src.Close()
		db.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, BackendPostgres, driver)
	if err != nil {
		src.Close()
		db.Close()
		return err
	}
	defer m.Close()

	return up(m)
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
