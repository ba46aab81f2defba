package database

import (
	"errors"
	"fmt"
	"strings"
	"vance/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

// Migrate applies every pending embedded migration. dsn is a postgres://
// or postgresql:// URL; migrate opens (and closes) its own connection.
func Migrate(dsn string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("error loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("error initialising migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("database schema is up to date")
	}
	return nil
}

// migrateURL rewrites the scheme to the one registered by the pgx/v5 driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
