package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"json4ai/internal/models"
)

const promptColumns = `id, user_id, comment, body, model, tier, created_at, updated_at`

type PromptRepository struct {
	pool *pgxpool.Pool
}

func NewPromptRepository(pool *pgxpool.Pool) *PromptRepository {
	return &PromptRepository{pool: pool}
}

func (r *PromptRepository) Create(ctx context.Context, prompt models.Prompt) error {
	const query = `
		INSERT INTO prompts (
			id, user_id, comment, body, model, tier, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
	`

	_, err := r.pool.Exec(ctx, query,
		prompt.ID,
		prompt.UserID,
		prompt.Comment,
		prompt.Body,
		prompt.Model,
		prompt.Tier,
		prompt.CreatedAt,
	)
	return err
}

func (r *PromptRepository) GetByID(ctx context.Context, id string) (models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`
	return scanPrompt(r.pool.QueryRow(ctx, query, id))
}

func (r *PromptRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Prompt, error) {
	limit, offset = clampPage(limit, offset)
	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []models.Prompt
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, rows.Err()
}

// UpdateComment only touches the comment; the tier snapshot is immutable.
func (r *PromptRepository) UpdateComment(ctx context.Context, id, userID, comment string) (models.Prompt, error) {
	query := `
		UPDATE prompts SET comment = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + promptColumns
	return scanPrompt(r.pool.QueryRow(ctx, query, id, userID, comment))
}

func (r *PromptRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prompts WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

func scanPrompt(row pgx.Row) (models.Prompt, error) {
	var prompt models.Prompt
	if err := row.Scan(
		&prompt.ID,
		&prompt.UserID,
		&prompt.Comment,
		&prompt.Body,
		&prompt.Model,
		&prompt.Tier,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Prompt{}, ErrPromptNotFound
		}
		return models.Prompt{}, err
	}
	return prompt, nil
}
