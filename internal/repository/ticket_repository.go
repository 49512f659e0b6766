package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	ListCreatedSince(ctx context.Context, organizationID string, since time.Time) ([]domain.Ticket, error)
	CountOpenByAssignee(ctx context.Context, organizationID string) (map[string]int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, organization_id, requester_user_id, team_id, assignee_agent_id,
               title, status, priority, channel, tags, created_at, updated_at, resolved_at
        FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.RequesterID,
		&ticket.TeamID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Channel,
		&ticket.Tags,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET team_id=$1, assignee_agent_id=$2, status=$3, priority=$4,
            tags=$5, resolved_at=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.TeamID,
		ticket.AssigneeID,
		ticket.Status,
		ticket.Priority,
		ticket.Tags,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListCreatedSince(ctx context.Context, organizationID string, since time.Time) ([]domain.Ticket, error) {
	const query = `
        SELECT id, organization_id, requester_user_id, team_id, assignee_agent_id,
               title, status, priority, channel, tags, created_at, updated_at, resolved_at
        FROM tickets
        WHERE organization_id=$1 AND created_at >= $2
        ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, organizationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// CountOpenByAssignee returns the ground-truth open ticket count per agent,
// used by workload drift correction.
func (r *ticketRepository) CountOpenByAssignee(ctx context.Context, organizationID string) (map[string]int, error) {
	const query = `
        SELECT assignee_agent_id, COUNT(*)
        FROM tickets
        WHERE organization_id=$1
          AND assignee_agent_id IS NOT NULL
          AND status = ANY($2)
        GROUP BY assignee_agent_id`

	statuses := make([]string, 0, len(domain.OpenStatuses))
	for _, s := range domain.OpenStatuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.pool.Query(ctx, query, organizationID, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var agentID string
		var count int
		if err := rows.Scan(&agentID, &count); err != nil {
			return nil, err
		}
		counts[agentID] = count
	}
	return counts, rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OrganizationID,
			&ticket.RequesterID,
			&ticket.TeamID,
			&ticket.AssigneeID,
			&ticket.Title,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Channel,
			&ticket.Tags,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
