// Package postgres owns the PostgreSQL connection pool and the schema of the
// observation store.  Migrations are embedded in the binary and applied with
// golang-migrate, either on startup or through somctl.
package postgres

import (
	"embed"
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationState is the schema version recorded in the database.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// migrator builds a Migrate on a dedicated connection of the pool.  Closing
// it releases that connection and leaves the pool open.
func (c *Connection) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
	}
	driver, err := migratepg.WithInstance(c.db, &migratepg.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// RunMigrations applies every pending migration.  An up-to-date schema is
// not an error.
func (c *Connection) RunMigrations() error {
	m, err := c.migrator()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}

	state, err := versionOf(m)
	if err != nil {
		c.logger.Warn("Failed to get migration version", logging.Err(err))
	}
	c.logger.Info("Database migrations completed",
		logging.Int64("version", int64(state.Version)),
		logging.Bool("dirty", state.Dirty),
	)
	return nil
}

// MigrationStatus reports the applied version.  A dirty state means a
// previous migration failed halfway and needs ForceMigrationVersion.
func (c *Connection) MigrationStatus() (MigrationState, error) {
	m, err := c.migrator()
	if err != nil {
		return MigrationState{}, err
	}
	defer m.Close()
	return versionOf(m)
}

// RollbackMigration reverts the given number of migrations.
func (c *Connection) RollbackMigration(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam(fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}
	m, err := c.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to rollback %d step(s)", steps))
	}
	c.logger.Info("Rolled back migrations", logging.Int("steps", steps))
	return nil
}

// ForceMigrationVersion sets the recorded version without running anything.
// Use -1 to mark the schema as unversioned.
func (c *Connection) ForceMigrationVersion(version int) error {
	m, err := c.migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to force version %d", version))
	}
	c.logger.Warn("Forced migration version", logging.Int("version", version))
	return nil
}

func versionOf(m *migrate.Migrate) (MigrationState, error) {
	v, dirty, err := m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return MigrationState{Version: v, Dirty: dirty}, nil
}

//Personal.AI order the ending
