// Package repomanager provides RepositoryManager implementations for
// PostgreSQL, wiring together repository constructors and database
// migrations (via goose), and for process memory.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/timers"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// postgresRepos binds repository constructors to one DBTX.
type postgresRepos struct {
	db dbx.DBTX
}

// Users returns a users.Repository bound to the DBTX.
func (r postgresRepos) Users() users.Repository {
	return users.NewPostgresRepository(r.db)
}

// Timers returns a timers.Repository bound to the DBTX.
func (r postgresRepos) Timers() timers.Repository {
	return timers.NewPostgresRepository(r.db)
}

// RevokedTokens returns a revokedtokens.Repository bound to the DBTX.
func (r postgresRepos) RevokedTokens() revokedtokens.Repository {
	return revokedtokens.NewPostgresRepository(r.db)
}

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	postgresRepos
	conn *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the managed connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(DriverName); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.conn, "."); err != nil {
		return err
	}
	return nil
}

// Ping checks connectivity.
func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	return dbx.Translate(m.conn.PingContext(ctx))
}

// WithTx runs fn inside a database transaction.
func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, m.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepos{db: tx})
	})
}

// Close closes the connection pool.
func (m *PostgresRepositoryManager) Close() error {
	return m.conn.Close()
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{postgresRepos: postgresRepos{db: db}, conn: db}, nil
}

// OpenPostgres opens a pgx connection pool for dsn and wraps it in a
// RepositoryManager. It does not connect; call Ping or RunMigrations.
func OpenPostgres(dsn string) (RepositoryManager, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresRepositoryManager(db)
}
