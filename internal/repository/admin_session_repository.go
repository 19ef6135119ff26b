package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"json4ai/internal/models"
)

const adminSessionColumns = `id, admin_id, token_hash, ip_address, user_agent, created_at, last_activity_at, expires_at, revoked_at`

type AdminSessionRepository struct {
	pool *pgxpool.Pool
}

func NewAdminSessionRepository(pool *pgxpool.Pool) *AdminSessionRepository {
	return &AdminSessionRepository{pool: pool}
}

// ReplaceActive serialises logins per admin with a transaction-scoped advisory
// lock, revokes whatever is still open and inserts the new session. It returns
// the number of sessions revoked.
func (r *AdminSessionRepository) ReplaceActive(ctx context.Context, session models.AdminSession, now time.Time) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "admin_session:"+session.AdminID); err != nil {
		return 0, fmt.Errorf("advisory lock: %w", err)
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE admin_sessions SET revoked_at = $2 WHERE admin_id = $1 AND revoked_at IS NULL`,
		session.AdminID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke open sessions: %w", err)
	}

	const insert = `
		INSERT INTO admin_sessions (
			id, admin_id, token_hash, ip_address, user_agent, created_at, last_activity_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`
	if _, err := tx.Exec(ctx, insert,
		session.ID,
		session.AdminID,
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.LastActivityAt,
		session.ExpiresAt,
	); err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *AdminSessionRepository) FindByTokenHash(ctx context.Context, hash []byte) (models.AdminSession, error) {
	query := `SELECT ` + adminSessionColumns + ` FROM admin_sessions WHERE token_hash = $1`

	row := r.pool.QueryRow(ctx, query, hash)
	var session models.AdminSession
	if err := row.Scan(
		&session.ID,
		&session.AdminID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdminSession{}, ErrSessionNotFound
		}
		return models.AdminSession{}, err
	}
	return session, nil
}

// TouchActivity never moves last_activity_at backwards and never revives a
// revoked session.
func (r *AdminSessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE admin_sessions
		SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *AdminSessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE admin_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *AdminSessionRepository) CountActive(ctx context.Context, now time.Time, idleTTL time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*) FROM admin_sessions
		WHERE revoked_at IS NULL
		  AND expires_at > $1
		  AND last_activity_at > $2
	`
	var count int
	err := r.pool.QueryRow(ctx, query, now, now.Add(-idleTTL)).Scan(&count)
	return count, err
}

// DeleteStale drops sessions that ended (revoked or expired) before the cutoff.
func (r *AdminSessionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	const query = `
		DELETE FROM admin_sessions
		WHERE (revoked_at IS NOT NULL AND revoked_at < $1)
		   OR expires_at < $1
	`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
