package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hower/prospector/internal/domain/autoresponder/entity"
)

// AutoresponderPostgres implements autoresponder configuration storage for PostgreSQL
type AutoresponderPostgres struct {
	pool *pgxpool.Pool
}

// NewAutoresponderPostgres creates a new PostgreSQL autoresponder repository
func NewAutoresponderPostgres(pool *pgxpool.Pool) *AutoresponderPostgres {
	return &AutoresponderPostgres{pool: pool}
}

const autoresponderColumns = `id, account_id, kind, name, is_active, use_keywords,
	keywords, message_text, reply_text, media_ids, position, created_at, updated_at`

// Create inserts a new autoresponder at the end of the account's priority order
func (r *AutoresponderPostgres) Create(ctx context.Context, a *entity.Autoresponder) error {
	query := `
		INSERT INTO autoresponders (
			id, account_id, kind, name, is_active, use_keywords,
			keywords, message_text, reply_text, media_ids, position, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE((SELECT MAX(position) + 1 FROM autoresponders WHERE account_id = $2), 0),
			$11, $11
		)
		RETURNING position, created_at, updated_at
	`

	now := time.Now()
	err := r.pool.QueryRow(ctx, query,
		a.ID,
		a.AccountID,
		a.Kind,
		a.Name,
		a.IsActive,
		a.UseKeywords,
		a.Keywords,
		a.MessageText,
		a.ReplyText,
		a.MediaIDs,
		now,
	).Scan(&a.Position, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating autoresponder: %w", err)
	}

	return nil
}

// GetByID retrieves an autoresponder by ID
func (r *AutoresponderPostgres) GetByID(ctx context.Context, id string) (*entity.Autoresponder, error) {
	query := `SELECT ` + autoresponderColumns + ` FROM autoresponders WHERE id = $1`

	var a entity.Autoresponder
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.AccountID,
		&a.Kind,
		&a.Name,
		&a.IsActive,
		&a.UseKeywords,
		&a.Keywords,
		&a.MessageText,
		&a.ReplyText,
		&a.MediaIDs,
		&a.Position,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting autoresponder: %w", err)
	}

	return &a, nil
}

// ListByAccount retrieves all autoresponders for an account in priority order.
// The matcher relies on this order; it must never be re-sorted downstream.
func (r *AutoresponderPostgres) ListByAccount(ctx context.Context, accountID string) ([]entity.Autoresponder, error) {
	query := `
		SELECT ` + autoresponderColumns + `
		FROM autoresponders
		WHERE account_id = $1
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing autoresponders: %w", err)
	}
	defer rows.Close()

	var out []entity.Autoresponder
	for rows.Next() {
		var a entity.Autoresponder
		err := rows.Scan(
			&a.ID,
			&a.AccountID,
			&a.Kind,
			&a.Name,
			&a.IsActive,
			&a.UseKeywords,
			&a.Keywords,
			&a.MessageText,
			&a.ReplyText,
			&a.MediaIDs,
			&a.Position,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning autoresponder row: %w", err)
		}
		out = append(out, a)
	}

	return out, nil
}

// ListActiveByAccount retrieves active autoresponders in priority order
func (r *AutoresponderPostgres) ListActiveByAccount(ctx context.Context, accountID string) ([]entity.Autoresponder, error) {
	all, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var active []entity.Autoresponder
	for _, a := range all {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active, nil
}

// Update updates an existing autoresponder
func (r *AutoresponderPostgres) Update(ctx context.Context, a *entity.Autoresponder) error {
	query := `
		UPDATE autoresponders
		SET name = $2, is_active = $3, use_keywords = $4, keywords = $5,
		    message_text = $6, reply_text = $7, media_ids = $8, position = $9, updated_at = $10
		WHERE id = $1
	`

	now := time.Now()
	result, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		a.IsActive,
		a.UseKeywords,
		a.Keywords,
		a.MessageText,
		a.ReplyText,
		a.MediaIDs,
		a.Position,
		now,
	)
	if err != nil {
		return fmt.Errorf("updating autoresponder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	a.UpdatedAt = now
	return nil
}

// Delete removes an autoresponder
func (r *AutoresponderPostgres) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM autoresponders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting autoresponder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}
