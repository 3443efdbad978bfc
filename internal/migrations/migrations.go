package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/meridianhq/portal-backend/internal/database"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Result reports the migration outcome to the invoking infrastructure.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Runner applies the embedded schema migrations to the application
// database. It is idempotent, only pending migrations are executed.
type Runner struct {
	manager *database.Manager
	logger  *zap.Logger
}

func NewRunner(manager *database.Manager, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{manager: manager, logger: logger}
}

// Run upgrades the schema to the latest version. Failures are contained in
// the result, never returned, so deployment tooling always gets an answer.
func (r *Runner) Run(ctx context.Context) Result {
	r.logger.Info("Migrating the database schema")
	if err := r.upgrade(ctx); err != nil {
		message := "Running database migration failed"
		r.logger.Error(message, zap.Error(err))
		return Result{Success: false, Message: message}
	}
	return Result{Success: true, Message: "OK"}
}

func (r *Runner) upgrade(ctx context.Context) error {
	db, err := r.manager.SQL(ctx)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			r.logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			r.logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	r.logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return nil
}
