package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hower/prospector/internal/domain/account/entity"
)

// AccountPostgres implements account storage for PostgreSQL
type AccountPostgres struct {
	pool *pgxpool.Pool
}

// NewAccountPostgres creates a new PostgreSQL account repository
func NewAccountPostgres(pool *pgxpool.Pool) *AccountPostgres {
	return &AccountPostgres{pool: pool}
}

// GetByInstagramUserID resolves the business account that owns an Instagram
// user id. The dispatcher uses this to attribute inbound webhook events;
// nil means the recipient is unknown to us.
func (r *AccountPostgres) GetByInstagramUserID(ctx context.Context, instagramUserID string) (*entity.Account, error) {
	query := `
		SELECT id, instagram_user_id, username, access_token, created_at
		FROM accounts
		WHERE instagram_user_id = $1
	`

	var acc entity.Account
	err := r.pool.QueryRow(ctx, query, instagramUserID).Scan(
		&acc.ID,
		&acc.InstagramUserID,
		&acc.Username,
		&acc.AccessToken,
		&acc.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by instagram user id: %w", err)
	}

	return &acc, nil
}

// GetByID retrieves an account by its internal id
func (r *AccountPostgres) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT id, instagram_user_id, username, access_token, created_at
		FROM accounts
		WHERE id = $1
	`

	var acc entity.Account
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.InstagramUserID,
		&acc.Username,
		&acc.AccessToken,
		&acc.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	return &acc, nil
}

// List retrieves all connected accounts
func (r *AccountPostgres) List(ctx context.Context) ([]entity.Account, error) {
	query := `
		SELECT id, instagram_user_id, username, access_token, created_at
		FROM accounts
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []entity.Account
	for rows.Next() {
		var acc entity.Account
		err := rows.Scan(
			&acc.ID,
			&acc.InstagramUserID,
			&acc.Username,
			&acc.AccessToken,
			&acc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, nil
}
