package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// RuleRepository reads assignment rules. Rules are static configuration,
// read-only to the router.
type RuleRepository interface {
	ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.AssignmentRule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates the repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.AssignmentRule, error) {
	const query = `
        SELECT id, organization_id, name, strategy, condition, target_team_id,
               priority_rank, active_flag, created_at, updated_at
        FROM assignment_rules
        WHERE organization_id=$1 AND active_flag=TRUE
        ORDER BY priority_rank DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		var rule domain.AssignmentRule
		var condition []byte
		if err := rows.Scan(
			&rule.ID,
			&rule.OrganizationID,
			&rule.Name,
			&rule.Strategy,
			&condition,
			&rule.TargetTeamID,
			&rule.PriorityRank,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(condition) > 0 {
			if err := json.Unmarshal(condition, &rule.Condition); err != nil {
				return nil, err
			}
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
