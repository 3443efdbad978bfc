package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	perrors "github.com/meridianhq/portal-backend/internal/errors"
	"github.com/meridianhq/portal-backend/internal/secrets"
)

// Provisioning actions.
const (
	ActionCreate   = "create"
	ActionDropDB   = "drop-db"
	ActionDropUser = "drop-user"
)

const defaultEncoding = "en_US.UTF8"

// Request is the inbound provisioning event.
type Request struct {
	Action   string `json:"action"`
	DBName   string `json:"db_name,omitempty"`
	Username string `json:"username,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// Result is the machine-parseable outcome of one provisioning call.
// Bootstrap tooling consumes it, so failures are reported here instead of
// being raised.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Provisioner idempotently creates and drops database roles and schemas.
// It operates on the maintenance database through the admin manager.
type Provisioner struct {
	manager       *Manager
	resolver      *secrets.Resolver
	appSecretName string
	appDBName     string
	logger        *zap.Logger
}

// NewProvisioner creates a provisioner. The manager must point at the
// cluster's maintenance database with a role allowed to create databases.
func NewProvisioner(manager *Manager, resolver *secrets.Resolver, appSecretName, appDBName string, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		manager:       manager,
		resolver:      resolver,
		appSecretName: appSecretName,
		appDBName:     appDBName,
		logger:        logger,
	}
}

// Apply dispatches one provisioning request. Failures never propagate:
// every error is logged and converted into a non-success Result.
func (p *Provisioner) Apply(ctx context.Context, req Request) Result {
	if req.Action == "" {
		return Result{Success: false, Message: "Action not defined"}
	}

	result, err := p.apply(ctx, req)
	if err != nil {
		message := fmt.Sprintf("setup database failed! Action %s", req.Action)
		p.logger.Error(message, zap.Error(err))
		return Result{Success: false, Message: message}
	}
	return result
}

func (p *Provisioner) apply(ctx context.Context, req Request) (Result, error) {
	db, err := p.manager.SQL(ctx)
	if err != nil {
		return Result{}, err
	}

	switch req.Action {
	case ActionCreate:
		return p.create(ctx, db, req)
	case ActionDropDB:
		return p.dropDatabase(ctx, db, req)
	case ActionDropUser:
		return p.dropUser(ctx, db, req)
	}

	return Result{
		Success: false,
		Message: "Unknown action. Valid actions are 'create', 'drop-db' and 'drop-user'",
	}, nil
}

func (p *Provisioner) create(ctx context.Context, db *sql.DB, req Request) (Result, error) {
	p.logger.Info("creating database role and schema", zap.String("secret", p.appSecretName))

	secret, err := p.resolver.ResolveConnection(ctx, p.appSecretName)
	if err != nil {
		return Result{}, err
	}

	dbName := secret.DBName
	if dbName == "" {
		dbName = p.appDBName
	}

	exists, err := p.roleExists(ctx, db, secret.Username)
	if err != nil {
		return Result{}, err
	}
	if !exists {
		if err := p.createRole(ctx, db, secret.Username, secret.Password); err != nil {
			return Result{}, err
		}
	}

	dbExists, err := p.databaseExists(ctx, db, dbName)
	if err != nil {
		return Result{}, err
	}
	if dbExists {
		return Result{Success: false, Message: "Database already exists"}, nil
	}

	encoding := req.Encoding
	if encoding == "" {
		encoding = defaultEncoding
	}
	if err := p.createDatabase(ctx, db, dbName, secret.Username, encoding); err != nil {
		return Result{}, err
	}

	return Result{Success: true, Message: "Database role and schema created"}, nil
}

func (p *Provisioner) dropDatabase(ctx context.Context, db *sql.DB, req Request) (Result, error) {
	p.logger.Info("dropping database schema", zap.String("database", req.DBName))

	if req.DBName == "" {
		return Result{}, perrors.ValidationError{Field: "db_name"}
	}
	if err := checkIdentifier(req.DBName, "Bad database name"); err != nil {
		return Result{}, err
	}

	// Other sessions block the drop, so terminate them first.
	_, err := db.ExecContext(ctx, `
		SELECT pg_terminate_backend(pg_stat_activity.pid)
		FROM pg_stat_activity
		WHERE pg_stat_activity.datname = $1
		AND pid <> pg_backend_pid()`, req.DBName)
	if err != nil {
		return Result{}, err
	}

	if _, err := db.ExecContext(ctx, "DROP DATABASE "+pq.QuoteIdentifier(req.DBName)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Database schema dropped"}, nil
}

func (p *Provisioner) dropUser(ctx context.Context, db *sql.DB, req Request) (Result, error) {
	p.logger.Info("dropping database user", zap.String("username", req.Username))

	if req.Username == "" {
		return Result{}, perrors.ValidationError{Field: "username"}
	}
	if err := checkIdentifier(req.Username, "Bad username"); err != nil {
		return Result{}, err
	}

	if _, err := db.ExecContext(ctx, "DROP USER "+pq.QuoteIdentifier(req.Username)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Database user dropped"}, nil
}

func (p *Provisioner) roleExists(ctx context.Context, db *sql.DB, username string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT rolname FROM pg_catalog.pg_roles WHERE rolname = $1", username).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) databaseExists(ctx context.Context, db *sql.DB, dbName string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT datname FROM pg_catalog.pg_database WHERE lower(datname) = $1",
		strings.ToLower(dbName)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provisioner) createRole(ctx context.Context, db *sql.DB, username, password string) error {
	if err := checkIdentifier(username, "Bad username"); err != nil {
		return err
	}

	// DDL takes no bound parameters, so the password goes through the
	// driver's literal quoting.
	_, err := db.ExecContext(ctx,
		"CREATE ROLE "+pq.QuoteIdentifier(username)+" LOGIN PASSWORD "+pq.QuoteLiteral(password))
	return err
}

func (p *Provisioner) createDatabase(ctx context.Context, db *sql.DB, dbName, owner, encoding string) error {
	if err := checkIdentifier(dbName, "Bad database name"); err != nil {
		return err
	}
	if err := checkIdentifier(owner, "Bad database owner"); err != nil {
		return err
	}

	admin, err := p.manager.Credentials(ctx)
	if err != nil {
		return err
	}

	// The provisioning role needs membership in the owner role before it
	// can hand over ownership.
	grant := fmt.Sprintf("GRANT %s TO %s", pq.QuoteIdentifier(owner), pq.QuoteIdentifier(admin.Username))
	if _, err := db.ExecContext(ctx, grant); err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"CREATE DATABASE %s WITH OWNER = %s TEMPLATE = template0 ENCODING = 'UTF8' LC_COLLATE = %s LC_CTYPE = %s",
		pq.QuoteIdentifier(dbName),
		pq.QuoteIdentifier(owner),
		pq.QuoteLiteral(encoding),
		pq.QuoteLiteral(encoding),
	)
	_, err = db.ExecContext(ctx, stmt)
	return err
}

// checkIdentifier is the mandatory precondition for every identifier that
// gets interpolated into a statement: quote characters are rejected outright
// since identifiers cannot travel as bound parameters.
func checkIdentifier(name, message string) error {
	if strings.ContainsAny(name, `'"`) {
		return perrors.ValidationError{Message: message}
	}
	return nil
}
