package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

const (
	keyServer    = "session.server"
	keyUserName  = "session.username"
	keyToken     = "session.token"
	keyExpiresAt = "session.expires_at"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveSession writes every session key. Callers that need the keys to
// change together pass a transaction as db.
func (r *SQLiteRepository) SaveSession(ctx context.Context, s Session) error {
	values := [][2]string{
		{keyServer, s.Server},
		{keyUserName, s.UserName},
		{keyToken, s.Token},
		{keyExpiresAt, strconv.FormatInt(s.ExpiresAt.UnixMilli(), 10)},
	}
	for _, kv := range values {
		if err := r.set(ctx, kv[0], []byte(kv[1])); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) LoadSession(ctx context.Context) (*Session, error) {
	var raw [4][]byte
	for i, k := range []string{keyServer, keyUserName, keyToken, keyExpiresAt} {
		v, err := r.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		raw[i] = v
	}

	ms, err := strconv.ParseInt(string(raw[3]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata[%s]: %w", keyExpiresAt, err)
	}

	return &Session{
		Server:    string(raw[0]),
		UserName:  string(raw[1]),
		Token:     string(raw[2]),
		ExpiresAt: time.UnixMilli(ms),
	}, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}
