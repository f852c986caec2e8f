package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

type SQLiteRepository struct {
	db    dbx.DBTX
	codec wire.Codec
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, codec: wire.CBORCodec{}}
}

func (r *SQLiteRepository) Save(ctx context.Context, scope string, m wire.Message, savedAt time.Time) error {
	frame, err := r.codec.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", m.Event(), err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (scope, event, frame, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, event) DO UPDATE SET frame = excluded.frame, saved_at = excluded.saved_at
	`, scope, string(m.Event()), frame, savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save snapshot[%s/%s]: %w", scope, m.Event(), err)
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, scope string, event wire.Event) (wire.Message, time.Time, error) {
	var (
		frame   []byte
		savedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT frame, saved_at FROM snapshots WHERE scope = ? AND event = ?`,
		scope, string(event)).Scan(&frame, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, common.ErrorNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load snapshot[%s/%s]: %w", scope, event, err)
	}

	m, err := r.codec.Decode(frame)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("corrupt snapshot[%s/%s]: %w", scope, event, err)
	}
	if m.Event() != event {
		return nil, time.Time{}, fmt.Errorf("corrupt snapshot[%s/%s]: holds %s", scope, event, m.Event())
	}
	return m, time.UnixMilli(savedAt), nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, scope string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE scope = ?`, scope)
	if err != nil {
		return fmt.Errorf("failed to clear snapshots[%s]: %w", scope, err)
	}
	return nil
}
