package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// LockRepository persists editing leases. The ticket_locks table has a
// primary key on ticket_id, so the upsert is the single-row atomic primitive
// the lease protocol relies on.
type LockRepository interface {
	Get(ctx context.Context, ticketID string) (*domain.TicketLock, error)
	Upsert(ctx context.Context, lock *domain.TicketLock) error
	Delete(ctx context.Context, ticketID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type lockRepository struct {
	pool *pgxpool.Pool
}

// NewLockRepository instantiates the repository.
func NewLockRepository(pool *pgxpool.Pool) LockRepository {
	return &lockRepository{pool: pool}
}

func (r *lockRepository) Get(ctx context.Context, ticketID string) (*domain.TicketLock, error) {
	const query = `
        SELECT ticket_id, holder_agent_id, expires_at, created_at
        FROM ticket_locks WHERE ticket_id=$1`

	var lock domain.TicketLock
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&lock.TicketID,
		&lock.HolderID,
		&lock.ExpiresAt,
		&lock.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *lockRepository) Upsert(ctx context.Context, lock *domain.TicketLock) error {
	const query = `
        INSERT INTO ticket_locks (ticket_id, holder_agent_id, expires_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id) DO UPDATE
        SET holder_agent_id=EXCLUDED.holder_agent_id, expires_at=EXCLUDED.expires_at
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		lock.TicketID,
		lock.HolderID,
		lock.ExpiresAt,
	).Scan(&lock.CreatedAt)
}

func (r *lockRepository) Delete(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ticket_locks WHERE ticket_id=$1`, ticketID)
	return err
}

func (r *lockRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_locks WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
