package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the activity-log and memory-archive schema up to
// date. A dirty version means a previous run died mid-migration and needs
// operator attention before the simulation can persist anything.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, dirty, _ := m.Version()
	if dirty {
		return fmt.Errorf("migration version %d is dirty, resolve manually", ver)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Debug("database schema already current", "version", ver)
	} else {
		slog.Info("database migrations applied", "version", ver, "source", migrationsPath)
	}
	return nil
}
