// Package cache opens the client's local SQLite database and exposes its
// repositories.
package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/timekeeper/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Metadata  metadata.Repository
	Snapshots snapshots.Repository

	db *sql.DB
}

// DB is the underlying handle, for services that need transactions.
func (r *Repositories) DB() *sql.DB {
	return r.db
}

func (r *Repositories) Close() error {
	return r.db.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the cache file at path and
// migrates it.
func InitDatabase(ctx context.Context, path string) (*Repositories, error) {
	path, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The push handler and the REPL write concurrently.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Snapshots: snapshots.NewSQLiteRepository(db),
		db:        db,
	}, nil
}
