package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// SLAPolicyRepository reads the per-organization policy table.
type SLAPolicyRepository interface {
	ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.SLAPolicy, error)
}

// SLABreachRepository persists breach facts. Breaches are append-only; only
// the acknowledgement fields are ever updated.
type SLABreachRepository interface {
	Append(ctx context.Context, breach *domain.SLABreach) error
	GetByID(ctx context.Context, id string) (*domain.SLABreach, error)
	Acknowledge(ctx context.Context, id, acknowledgerID string, at time.Time) error
	ExistsForTicket(ctx context.Context, ticketID string, breachType domain.BreachType) (bool, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository instantiates the repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, organization_id, priority, response_time_minutes, resolution_time_minutes,
               business_hours_only, active_flag, created_at, updated_at
        FROM sla_policies
        WHERE organization_id=$1 AND active_flag=TRUE
        ORDER BY priority`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.OrganizationID,
			&policy.Priority,
			&policy.ResponseTimeMinutes,
			&policy.ResolutionTimeMinutes,
			&policy.BusinessHoursOnly,
			&policy.Active,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

type slaBreachRepository struct {
	pool *pgxpool.Pool
}

// NewSLABreachRepository instantiates the repository.
func NewSLABreachRepository(pool *pgxpool.Pool) SLABreachRepository {
	return &slaBreachRepository{pool: pool}
}

func (r *slaBreachRepository) Append(ctx context.Context, breach *domain.SLABreach) error {
	const query = `
        INSERT INTO sla_breaches (id, ticket_id, policy_id, breach_type, breached_at)
        VALUES ($1,$2,$3,$4,$5)`

	_, err := r.pool.Exec(ctx, query,
		breach.ID,
		breach.TicketID,
		breach.PolicyID,
		breach.BreachType,
		breach.BreachedAt,
	)
	return err
}

func (r *slaBreachRepository) GetByID(ctx context.Context, id string) (*domain.SLABreach, error) {
	const query = `
        SELECT id, ticket_id, policy_id, breach_type, breached_at, acknowledged_by, acknowledged_at
        FROM sla_breaches WHERE id=$1`

	var breach domain.SLABreach
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&breach.ID,
		&breach.TicketID,
		&breach.PolicyID,
		&breach.BreachType,
		&breach.BreachedAt,
		&breach.AcknowledgedBy,
		&breach.AcknowledgedAt,
	); err != nil {
		return nil, err
	}
	return &breach, nil
}

func (r *slaBreachRepository) Acknowledge(ctx context.Context, id, acknowledgerID string, at time.Time) error {
	const query = `
        UPDATE sla_breaches SET acknowledged_by=$1, acknowledged_at=$2 WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, acknowledgerID, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaBreachRepository) ExistsForTicket(ctx context.Context, ticketID string, breachType domain.BreachType) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM sla_breaches WHERE ticket_id=$1 AND breach_type=$2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID, breachType).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
