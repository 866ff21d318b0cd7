package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" and "down".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown migration direction %q", s)
}

// Migrate applies (Up) or reverts (Down) steps migrations on db; steps <= 0
// means all of them.  The handle is left open for the caller.
func Migrate(db *sql.DB, dir Direction, steps int, log zerolog.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch {
	case steps > 0 && dir == Down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case dir == Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
		log.Info().Str("direction", string(dir)).Msg("no migrations applied")
	case verr != nil:
		return fmt.Errorf("migration version: %w", verr)
	default:
		log.Info().
			Str("direction", string(dir)).
			Uint("version", version).
			Bool("dirty", dirty).
			Msg("database migration completed")
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	// WithInstance keeps ownership of db with the caller; m.Close would
	// close it, so the migrator is never closed here.
	drv, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", drv)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, nil
}
