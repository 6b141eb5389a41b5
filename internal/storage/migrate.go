package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// credentialsSchema holds the versioned DDL of the credentials table.
//
//go:embed migrations/*.sql
var credentialsSchema embed.FS

// RunMigrations brings the credentials schema of the database at dbPath up
// to date and returns the schema version it ends at.
func RunMigrations(dbPath string) (uint, error) {
	// The migrator closes its driver, so it gets its own connection.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open %s for migration: %w", dbPath, err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	source, err := iofs.New(credentialsSchema, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load credentials schema: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate credentials schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read credentials schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("credentials schema version %d is dirty", version)
	}
	slog.Debug("Credentials schema ready", "db", dbPath, "version", version)
	return version, nil
}
