package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) InsertEntry(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, detail, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, e.ActorID, e.Action, e.Detail, nullableTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
