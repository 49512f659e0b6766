package service

import (
	"sort"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// selectCandidate dispatches on the rule strategy over a non-empty candidate
// pool. Workloads are keyed by agent id; candidates without a ledger row are
// treated as never assigned and idle.
func selectCandidate(strategy domain.AssignmentStrategy, pool []domain.Agent, workloads map[string]domain.AgentWorkload, randIntn func(int) int) *domain.Agent {
	if len(pool) == 0 {
		return nil
	}

	switch strategy {
	case domain.StrategyRoundRobin:
		return selectRoundRobin(pool, workloads)
	case domain.StrategyLeastBusy:
		return selectLeastBusy(pool, workloads)
	case domain.StrategyRandom:
		return &pool[randIntn(len(pool))]
	case domain.StrategySkillsBased:
		// Skill matching is not implemented; first candidate by pool order
		// until the scoring model lands.
		return &pool[0]
	default:
		return &pool[0]
	}
}

// selectRoundRobin picks the candidate with the oldest last_assigned_at,
// ties broken by pool order. Candidates with no ledger row sort before all
// ledgered ones, so a fresh pool yields the first candidate.
func selectRoundRobin(pool []domain.Agent, workloads map[string]domain.AgentWorkload) *domain.Agent {
	best := 0
	for i := 1; i < len(pool); i++ {
		if roundRobinBefore(workloads, pool[i].ID, pool[best].ID) {
			best = i
		}
	}
	return &pool[best]
}

func roundRobinBefore(workloads map[string]domain.AgentWorkload, a, b string) bool {
	wa, okA := workloads[a]
	wb, okB := workloads[b]
	lastA := okA && wa.LastAssignedAt != nil
	lastB := okB && wb.LastAssignedAt != nil

	if !lastA || !lastB {
		// only a strictly missing timestamp beats a present one
		return !lastA && lastB
	}
	return wa.LastAssignedAt.Before(*wb.LastAssignedAt)
}

// selectLeastBusy picks the smallest open-ticket count; a missing ledger row
// counts as zero. The sort is stable so pool order breaks ties.
func selectLeastBusy(pool []domain.Agent, workloads map[string]domain.AgentWorkload) *domain.Agent {
	ranked := make([]domain.Agent, len(pool))
	copy(ranked, pool)
	sort.SliceStable(ranked, func(i, j int) bool {
		return openTickets(workloads, ranked[i].ID) < openTickets(workloads, ranked[j].ID)
	})
	return &ranked[0]
}

func openTickets(workloads map[string]domain.AgentWorkload, agentID string) int {
	if w, ok := workloads[agentID]; ok {
		return w.OpenTickets
	}
	return 0
}
