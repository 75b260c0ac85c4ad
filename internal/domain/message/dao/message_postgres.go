package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hower/prospector/internal/domain/message/entity"
)

// MessagePostgres implements the message log for PostgreSQL
type MessagePostgres struct {
	pool *pgxpool.Pool
}

// NewMessagePostgres creates a new PostgreSQL message repository
func NewMessagePostgres(pool *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{pool: pool}
}

const messageColumns = `id, account_id, sender_id, recipient_id, text, direction,
	source, comment_id, is_invitation, raw_key, timestamp, created_at`

// Insert appends a message to the log. Replaying the same message id is a
// no-op: the log is append-only and webhook delivery is at-least-once.
// Returns true if a new row was written.
func (r *MessagePostgres) Insert(ctx context.Context, msg *entity.Message) (bool, error) {
	query := `
		INSERT INTO messages (
			id, account_id, sender_id, recipient_id, text, direction,
			source, comment_id, is_invitation, raw_key, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.AccountID,
		msg.SenderID,
		msg.RecipientID,
		msg.Text,
		msg.Direction,
		msg.Source,
		msg.CommentID,
		msg.IsInvitation,
		msg.RawKey,
		msg.Timestamp,
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting message: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByCounterparty retrieves the full conversation with one counterparty,
// ordered by timestamp ascending (classification order).
func (r *MessagePostgres) GetByCounterparty(ctx context.Context, accountID, counterpartyID string) ([]entity.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = $1
		  AND (sender_id = $2 OR recipient_id = $2)
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, accountID, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetByAccount retrieves all messages for an account, ordered by timestamp
// ascending. Used by the aggregator for a full rebuild.
func (r *MessagePostgres) GetByAccount(ctx context.Context, accountID string) ([]entity.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying account messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetRecentInbound retrieves the most recent received messages from a
// counterparty, newest first. The dispatcher uses limit=2 for the
// cool-down check.
func (r *MessagePostgres) GetRecentInbound(ctx context.Context, accountID, counterpartyID string, limit int) ([]entity.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE account_id = $1
		  AND sender_id = $2
		  AND direction = $3
		ORDER BY timestamp DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, accountID, counterpartyID, entity.DirectionReceived, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent inbound: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListAccountIDs returns the distinct account ids present in the log
func (r *MessagePostgres) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT account_id FROM messages")
	if err != nil {
		return nil, fmt.Errorf("querying account ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning account id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func scanMessages(rows pgx.Rows) ([]entity.Message, error) {
	var messages []entity.Message
	for rows.Next() {
		var msg entity.Message
		err := rows.Scan(
			&msg.ID,
			&msg.AccountID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.Text,
			&msg.Direction,
			&msg.Source,
			&msg.CommentID,
			&msg.IsInvitation,
			&msg.RawKey,
			&msg.Timestamp,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
