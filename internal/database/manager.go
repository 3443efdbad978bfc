package database

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	perrors "github.com/meridianhq/portal-backend/internal/errors"
	"github.com/meridianhq/portal-backend/internal/secrets"
)

// Manager owns one pooled connection per (connection secret, database name)
// pair. The pool is opened lazily on first use and lives for the process;
// sessions taken from it are scoped to a single invocation.
type Manager struct {
	secretName string
	dbName     string
	resolver   *secrets.Resolver
	logger     *zap.Logger

	mu     sync.Mutex
	sqlDB  *sql.DB
	gormDB *gorm.DB
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConn injects an already-open connection (for testing).
func WithConn(db *sql.DB) ManagerOption {
	return func(m *Manager) {
		m.sqlDB = db
	}
}

// NewManager creates a manager for the database named dbName, connecting
// with the credentials behind secretName.
func NewManager(resolver *secrets.Resolver, secretName, dbName string, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		secretName: secretName,
		dbName:     dbName,
		resolver:   resolver,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Credentials resolves the manager's connection secret.
func (m *Manager) Credentials(ctx context.Context) (*secrets.Connection, error) {
	return m.resolver.ResolveConnection(ctx, m.secretName)
}

// SQL returns the manager's pooled connection, opening it on first use.
func (m *Manager) SQL(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sqlDB != nil {
		return m.sqlDB, nil
	}

	conn, err := m.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", conn.URL(m.dbName))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	m.logger.Debug("opened database pool", zap.String("database", m.dbName))
	m.sqlDB = db
	return m.sqlDB, nil
}

// DB returns the ORM handle layered on the manager's pool.
func (m *Manager) DB(ctx context.Context) (*gorm.DB, error) {
	sqlDB, err := m.SQL(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gormDB != nil {
		return m.gormDB, nil
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	m.gormDB = db
	return m.gormDB, nil
}

// WithSession runs fn inside one transaction scoped to the invocation. The
// transaction commits when fn returns nil and rolls back otherwise.
// Validation and not-found failures pass through unchanged; anything else
// is logged with full detail and replaced with a generic ServiceError so
// internal state never crosses the system boundary.
func (m *Manager) WithSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, err := m.DB(ctx)
	if err != nil {
		return m.contain(err)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return m.contain(tx.Error)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return m.contain(err)
	}

	if err := tx.Commit().Error; err != nil {
		return m.contain(err)
	}
	return nil
}

func (m *Manager) contain(err error) error {
	if perrors.CallerVisible(err) {
		return err
	}
	m.logger.Error("Internal server error", zap.Error(err))
	return perrors.ServiceError{Err: err}
}

// Close releases the pool. Intended for process shutdown and tests.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sqlDB == nil {
		return nil
	}
	err := m.sqlDB.Close()
	m.sqlDB = nil
	m.gormDB = nil
	return err
}
