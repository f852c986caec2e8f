package timers

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// PostgresRepository stores timers in the timers table. Stop is a single
// conditional UPDATE, so concurrent stops of one timer cannot both succeed.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, timer *models.Timer) (*models.Timer, error) {
	query :=
		`INSERT INTO timers (user_id, description, is_active, started_at)
		 VALUES ($1, $2, TRUE, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, timer.UserID, timer.Description, timer.StartedAt).Scan(&timer.ID)
	if err != nil {
		return nil, dbx.Translate(err)
	}

	return timer, nil
}

func (r *PostgresRepository) Stop(ctx context.Context, userID string, id int64, endedAt time.Time) (*models.Timer, error) {
	query :=
		`UPDATE timers SET is_active = FALSE, ended_at = $3
		 WHERE id = $1 AND user_id = $2 AND is_active
		 RETURNING id, user_id, description, started_at, ended_at
		 `

	t, err := scanTimer(r.db.QueryRowContext(ctx, query, id, userID, endedAt))
	if err != nil {
		return nil, dbx.Translate(err)
	}
	return t, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, id int64) (*models.Timer, error) {
	query :=
		`SELECT id, user_id, description, started_at, ended_at FROM timers
		 WHERE id = $1 AND user_id = $2
		 `

	t, err := scanTimer(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		return nil, dbx.Translate(err)
	}
	return t, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Timer, error) {
	query :=
		`SELECT id, user_id, description, started_at, ended_at FROM timers
		 WHERE user_id = $1 AND (is_active OR NOT $2)
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, activeOnly)
	if err != nil {
		return nil, dbx.Translate(err)
	}
	defer rows.Close()

	result := make([]models.Timer, 0)
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, dbx.Translate(err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Translate(err)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimer(s scanner) (*models.Timer, error) {
	t := &models.Timer{}
	var ended sql.NullTime
	if err := s.Scan(&t.ID, &t.UserID, &t.Description, &t.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		end := ended.Time
		t.EndedAt = &end
	}
	return t, nil
}
