package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"json4ai/internal/models"
)

type EntitlementRepository struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

func (r *EntitlementRepository) Exists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entitlement_events WHERE reference = $1)`, reference).Scan(&exists)
	return exists, err
}

// Record stores the event once; a replayed reference returns false.
func (r *EntitlementRepository) Record(ctx context.Context, event models.EntitlementEvent) (bool, error) {
	const query = `
		INSERT INTO entitlement_events (reference, user_id, tier, status, amount, currency, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reference) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, query,
		event.Reference,
		event.UserID,
		event.Tier,
		event.Status,
		event.Amount,
		event.Currency,
		event.ReceivedAt,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
