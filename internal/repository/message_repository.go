package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository exposes the conversation facts the SLA tracker needs.
// Message CRUD itself belongs to the messaging subsystem.
type MessageRepository interface {
	FirstAgentReplyAt(ctx context.Context, ticketID string) (*time.Time, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates the repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

// FirstAgentReplyAt returns the earliest public agent reply, or nil when the
// ticket has not been answered yet.
func (r *messageRepository) FirstAgentReplyAt(ctx context.Context, ticketID string) (*time.Time, error) {
	const query = `
        SELECT created_at FROM ticket_messages
        WHERE ticket_id=$1 AND author_type='AGENT' AND internal_flag=FALSE
        ORDER BY created_at ASC LIMIT 1`

	var at time.Time
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &at, nil
}
