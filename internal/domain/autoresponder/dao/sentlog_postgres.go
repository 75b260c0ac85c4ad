package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hower/prospector/internal/domain/autoresponder/entity"
)

// SentLogPostgres implements the append-only autoresponder sent log for PostgreSQL
type SentLogPostgres struct {
	pool *pgxpool.Pool
}

// NewSentLogPostgres creates a new PostgreSQL sent log repository
func NewSentLogPostgres(pool *pgxpool.Pool) *SentLogPostgres {
	return &SentLogPostgres{pool: pool}
}

// Append records one automated send
func (r *SentLogPostgres) Append(ctx context.Context, e *entity.SentLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}

	query := `
		INSERT INTO autoresponder_sent_log (id, autoresponder_id, account_id, counterparty_id, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, e.ID, e.AutoresponderID, e.AccountID, e.CounterpartyID, e.SentAt)
	if err != nil {
		return fmt.Errorf("appending sent log entry: %w", err)
	}

	return nil
}

// ListByAccount returns sent log entries for an account, newest first
func (r *SentLogPostgres) ListByAccount(ctx context.Context, accountID string, limit int) ([]entity.SentLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, autoresponder_id, account_id, counterparty_id, sent_at
		FROM autoresponder_sent_log
		WHERE account_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sent log: %w", err)
	}
	defer rows.Close()

	var out []entity.SentLogEntry
	for rows.Next() {
		var e entity.SentLogEntry
		if err := rows.Scan(&e.ID, &e.AutoresponderID, &e.AccountID, &e.CounterpartyID, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scanning sent log row: %w", err)
		}
		out = append(out, e)
	}

	return out, nil
}
