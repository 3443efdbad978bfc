// Package app wires configuration, logging and the service layer together
// for the function entrypoints and the CLI.
package app

import (
	"go.uber.org/zap"

	"github.com/meridianhq/portal-backend/internal/config"
	"github.com/meridianhq/portal-backend/internal/database"
	"github.com/meridianhq/portal-backend/internal/directory"
	"github.com/meridianhq/portal-backend/internal/hooks"
	"github.com/meridianhq/portal-backend/internal/logging"
	"github.com/meridianhq/portal-backend/internal/migrations"
	"github.com/meridianhq/portal-backend/internal/secrets"
)

// App carries the shared dependencies of all entrypoints.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Masker   *logging.Masker
	Resolver *secrets.Resolver
}

// New loads configuration and builds the shared dependency graph.
func New() *App {
	cfg := config.Load()
	logger, masker := logging.New(cfg.LogLevel)
	resolver := secrets.NewResolver(cfg.AWSRegion, logger, masker)
	return &App{
		Config:   cfg,
		Logger:   logger,
		Masker:   masker,
		Resolver: resolver,
	}
}

// MasterManager connects to the maintenance database with the cluster
// master credentials. Used for provisioning only.
func (a *App) MasterManager() *database.Manager {
	return database.NewManager(a.Resolver, a.Config.MasterSecretName, "postgres", a.Logger)
}

// AppManager connects to the application database with the application
// credentials.
func (a *App) AppManager() *database.Manager {
	return database.NewManager(a.Resolver, a.Config.AppSecretName, a.Config.AppDBName, a.Logger)
}

func (a *App) Provisioner() *database.Provisioner {
	return database.NewProvisioner(a.MasterManager(), a.Resolver, a.Config.AppSecretName, a.Config.AppDBName, a.Logger)
}

func (a *App) Directory() *directory.Service {
	return directory.NewService(a.AppManager(), a.Logger)
}

func (a *App) Hooks() *hooks.Handler {
	return hooks.NewHandler(a.Directory(), a.Config.GroupPrefix(), a.Logger)
}

func (a *App) Users() *directory.QueryHandler {
	return directory.NewQueryHandler(a.Directory(), a.Config.IsLocal(), a.Logger)
}

func (a *App) Migrations() *migrations.Runner {
	return migrations.NewRunner(a.AppManager(), a.Logger)
}
