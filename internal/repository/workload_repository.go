package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// WorkloadRepository owns the per-agent open-ticket ledger. Increment and
// Decrement are single-row atomic updates; Set is reserved for drift
// correction from ground truth.
type WorkloadRepository interface {
	Get(ctx context.Context, agentID string) (*domain.AgentWorkload, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.AgentWorkload, error)
	ListByAgentIDs(ctx context.Context, agentIDs []string) ([]domain.AgentWorkload, error)
	Increment(ctx context.Context, organizationID, agentID string, assignedAt time.Time) error
	Decrement(ctx context.Context, agentID string) error
	Set(ctx context.Context, organizationID, agentID string, openTickets int) error
}

type workloadRepository struct {
	pool *pgxpool.Pool
}

// NewWorkloadRepository instantiates the repository.
func NewWorkloadRepository(pool *pgxpool.Pool) WorkloadRepository {
	return &workloadRepository{pool: pool}
}

const workloadColumns = `agent_id, organization_id, open_tickets, last_assigned_at, updated_at`

func (r *workloadRepository) Get(ctx context.Context, agentID string) (*domain.AgentWorkload, error) {
	query := fmt.Sprintf(`SELECT %s FROM agent_workloads WHERE agent_id=$1`, workloadColumns)

	var workload domain.AgentWorkload
	if err := r.pool.QueryRow(ctx, query, agentID).Scan(
		&workload.AgentID,
		&workload.OrganizationID,
		&workload.OpenTickets,
		&workload.LastAssignedAt,
		&workload.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &workload, nil
}

func (r *workloadRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.AgentWorkload, error) {
	query := fmt.Sprintf(`SELECT %s FROM agent_workloads WHERE organization_id=$1 ORDER BY agent_id`, workloadColumns)

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func (r *workloadRepository) ListByAgentIDs(ctx context.Context, agentIDs []string) ([]domain.AgentWorkload, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(agentIDs))
	args := make([]any, len(agentIDs))
	for i, id := range agentIDs {
		args[i] = id
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT %s FROM agent_workloads WHERE agent_id IN (%s)`,
		workloadColumns, strings.Join(placeholders, ","))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkloads(rows)
}

func (r *workloadRepository) Increment(ctx context.Context, organizationID, agentID string, assignedAt time.Time) error {
	const query = `
        INSERT INTO agent_workloads (agent_id, organization_id, open_tickets, last_assigned_at)
        VALUES ($1,$2,1,$3)
        ON CONFLICT (agent_id) DO UPDATE
        SET open_tickets = agent_workloads.open_tickets + 1,
            last_assigned_at = EXCLUDED.last_assigned_at,
            updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, agentID, organizationID, assignedAt)
	return err
}

func (r *workloadRepository) Decrement(ctx context.Context, agentID string) error {
	// GREATEST keeps the counter from going negative; a missing row is a no-op.
	const query = `
        UPDATE agent_workloads
        SET open_tickets = GREATEST(open_tickets - 1, 0), updated_at = NOW()
        WHERE agent_id=$1`

	_, err := r.pool.Exec(ctx, query, agentID)
	return err
}

func (r *workloadRepository) Set(ctx context.Context, organizationID, agentID string, openTickets int) error {
	const query = `
        INSERT INTO agent_workloads (agent_id, organization_id, open_tickets)
        VALUES ($1,$2,$3)
        ON CONFLICT (agent_id) DO UPDATE
        SET open_tickets = EXCLUDED.open_tickets, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, agentID, organizationID, openTickets)
	return err
}

func scanWorkloads(rows pgx.Rows) ([]domain.AgentWorkload, error) {
	var result []domain.AgentWorkload
	for rows.Next() {
		var workload domain.AgentWorkload
		if err := rows.Scan(
			&workload.AgentID,
			&workload.OrganizationID,
			&workload.OpenTickets,
			&workload.LastAssignedAt,
			&workload.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, workload)
	}
	return result, rows.Err()
}
