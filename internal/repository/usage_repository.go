package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	pool *pgxpool.Pool
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Reserve is a single conditional upsert: the row lock taken by ON CONFLICT
// serialises concurrent reservations for the same (user, period), and the
// WHERE guard leaves the counter untouched once it reaches the limit.
func (r *UsageRepository) Reserve(ctx context.Context, userID, period string, limit int, periodEnd time.Time) (int, bool, error) {
	if limit <= 0 {
		used, err := r.Get(ctx, userID, period)
		return used, false, err
	}

	const query = `
		INSERT INTO usage_counters (user_id, period, count, limit_snapshot, period_end, updated_at)
		VALUES ($1, $2, 1, $3, $4, NOW())
		ON CONFLICT (user_id, period) DO UPDATE
		SET count = usage_counters.count + 1,
		    limit_snapshot = EXCLUDED.limit_snapshot,
		    updated_at = NOW()
		WHERE usage_counters.count < $3
		RETURNING count
	`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, period, limit, periodEnd).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		used, getErr := r.Get(ctx, userID, period)
		return used, false, getErr
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (r *UsageRepository) Get(ctx context.Context, userID, period string) (int, error) {
	const query = `SELECT count FROM usage_counters WHERE user_id = $1 AND period = $2`
	var count int
	err := r.pool.QueryRow(ctx, query, userID, period).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

func (r *UsageRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM usage_counters WHERE period_end < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
