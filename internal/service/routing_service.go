package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/observability"
	"github.com/spec-kit/ticket-routing/internal/repository"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// Assignment failure reasons. Business outcomes, not errors.
const (
	ReasonTicketNotFound   = "ticket_not_found"
	ReasonAlreadyAssigned  = "already_assigned"
	ReasonAssigneeNotFound = "assignee_not_found"
	ReasonAssigneeInactive = "assignee_inactive"
	ReasonNoMatch          = "no_matching_rule_or_agent"
)

// AssignmentResult is the structured outcome of a routing operation.
type AssignmentResult struct {
	Success    bool
	AssigneeID *string
	RuleName   string
	Strategy   domain.AssignmentStrategy
	Reason     string
}

// RoutingService selects agents for tickets and keeps the per-agent workload
// ledger approximately live.
type RoutingService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	teams      repository.TeamRepository
	rules      repository.RuleRepository
	workloads  repository.WorkloadRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	randIntn   func(int) int
}

// RoutingDependencies bundles collaborators.
type RoutingDependencies struct {
	TicketRepo   repository.TicketRepository
	AgentRepo    repository.AgentRepository
	TeamRepo     repository.TeamRepository
	RuleRepo     repository.RuleRepository
	WorkloadRepo repository.WorkloadRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
	RandIntn     func(int) int
}

// NewRoutingService creates the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	randIntn := deps.RandIntn
	if randIntn == nil {
		randIntn = rand.Intn
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutingService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		teams:      deps.TeamRepo,
		rules:      deps.RuleRepo,
		workloads:  deps.WorkloadRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
		randIntn:   randIntn,
	}
}

// AutoAssign routes an unassigned ticket through the organization's active
// rules in descending priority rank. The first rule whose condition matches
// and whose candidate pool yields an agent wins.
func (s *RoutingService) AutoAssign(ctx context.Context, ticketID string) (*AssignmentResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &AssignmentResult{Reason: ReasonTicketNotFound}, nil
		}
		return nil, err
	}
	if ticket.AssigneeID != nil {
		return &AssignmentResult{Reason: ReasonAlreadyAssigned}, nil
	}

	rules, err := s.rules.ListActiveByOrganization(ctx, ticket.OrganizationID)
	if err != nil {
		return nil, err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Condition.Matches(ticket) {
			continue
		}

		usable, err := s.targetTeamUsable(ctx, rule.TargetTeamID)
		if err != nil {
			return nil, err
		}
		if !usable {
			continue
		}

		pool, err := s.candidatePool(ctx, ticket.OrganizationID, rule.TargetTeamID)
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			continue
		}

		workloads, err := s.workloadsByAgent(ctx, pool)
		if err != nil {
			return nil, err
		}

		assignee := selectCandidate(rule.Strategy, pool, workloads, s.randIntn)
		if assignee == nil {
			continue
		}

		if err := s.writeAssignment(ctx, ticket, assignee.ID, nil); err != nil {
			return nil, err
		}
		s.metrics.RecordEngineOp("assign_auto_" + string(rule.Strategy))
		s.publish(ctx, events.Event{
			ID:           uuid.NewString(),
			Type:         events.EventTicketAssigned,
			TicketID:     ticket.ID,
			ActorAgentID: nil,
			Timestamp:    s.now(),
			Payload: events.TicketAssignedPayload{
				AssigneeAgentID: assignee.ID,
				RuleName:        rule.Name,
				Strategy:        rule.Strategy,
			},
		})
		assigneeID := assignee.ID
		return &AssignmentResult{
			Success:    true,
			AssigneeID: &assigneeID,
			RuleName:   rule.Name,
			Strategy:   rule.Strategy,
			Reason:     string(rule.Strategy),
		}, nil
	}

	return &AssignmentResult{Reason: ReasonNoMatch}, nil
}

// ManualAssign sets the first assignee of a ticket. First assignment wins;
// moving an already-assigned ticket goes through Reassign.
func (s *RoutingService) ManualAssign(ctx context.Context, ticketID, assigneeID, actingAgentID string) (*AssignmentResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &AssignmentResult{Reason: ReasonTicketNotFound}, nil
		}
		return nil, err
	}
	if ticket.AssigneeID != nil {
		return &AssignmentResult{Reason: ReasonAlreadyAssigned}, nil
	}

	assignee, result, err := s.resolveAssignee(ctx, assigneeID)
	if err != nil || result != nil {
		return result, err
	}

	if err := s.writeAssignment(ctx, ticket, assignee.ID, &actingAgentID); err != nil {
		return nil, err
	}
	s.metrics.RecordEngineOp("assign_manual")
	s.publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Type:         events.EventTicketAssigned,
		TicketID:     ticket.ID,
		ActorAgentID: &actingAgentID,
		Timestamp:    s.now(),
		Payload:      events.TicketAssignedPayload{AssigneeAgentID: assignee.ID},
	})
	return &AssignmentResult{Success: true, AssigneeID: &assignee.ID}, nil
}

// Reassign unconditionally moves a ticket to a new assignee. The ledger is
// decremented for the old assignee before the new one is incremented; a
// crash between the two under-counts until the next resync.
func (s *RoutingService) Reassign(ctx context.Context, ticketID, newAssigneeID, reason string) (*AssignmentResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &AssignmentResult{Reason: ReasonTicketNotFound}, nil
		}
		return nil, err
	}

	assignee, result, err := s.resolveAssignee(ctx, newAssigneeID)
	if err != nil || result != nil {
		return result, err
	}

	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if oldAssignee != nil {
		if err := s.workloads.Decrement(ctx, *oldAssignee); err != nil {
			return nil, err
		}
	}
	if err := s.workloads.Increment(ctx, ticket.OrganizationID, assignee.ID, s.now()); err != nil {
		return nil, err
	}

	if err := s.recordAssigneeChange(ctx, ticket.ID, nil, oldAssignee, &assignee.ID, reason); err != nil {
		return nil, err
	}
	s.metrics.RecordEngineOp("assign_reassign")
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketReassigned,
		TicketID:  ticket.ID,
		Timestamp: s.now(),
		Payload: events.TicketReassignedPayload{
			OldAssigneeID: oldAssignee,
			NewAssigneeID: assignee.ID,
			Reason:        reason,
		},
	})
	return &AssignmentResult{Success: true, AssigneeID: &assignee.ID}, nil
}

// GetWorkloads returns the current ledger rows for an organization.
func (s *RoutingService) GetWorkloads(ctx context.Context, organizationID string) ([]domain.AgentWorkload, error) {
	return s.workloads.ListByOrganization(ctx, organizationID)
}

// SyncWorkloads recomputes every agent's open-ticket count from ground truth
// and overwrites the ledger. Run after bulk operations that mutate tickets
// outside the router.
func (s *RoutingService) SyncWorkloads(ctx context.Context, organizationID string) error {
	counts, err := s.tickets.CountOpenByAssignee(ctx, organizationID)
	if err != nil {
		return err
	}

	agents, err := s.agents.List(ctx, repository.AgentFilter{
		OrganizationID: &organizationID,
		Roles:          domain.AssignableRoles,
	})
	if err != nil {
		return err
	}

	for _, agent := range agents {
		if err := s.workloads.Set(ctx, organizationID, agent.ID, counts[agent.ID]); err != nil {
			return err
		}
	}

	s.logger.Info("workloads resynced",
		zap.String("organization_id", organizationID),
		zap.Int("agents", len(agents)),
	)
	return nil
}

// targetTeamUsable reports whether a rule's team scope can currently route.
// A rule targeting a deleted or deactivated team is skipped rather than
// routing to a pool that no longer exists.
func (s *RoutingService) targetTeamUsable(ctx context.Context, teamID *string) (bool, error) {
	if teamID == nil || s.teams == nil {
		return true, nil
	}
	team, err := s.teams.GetByID(ctx, *teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return team.IsActive, nil
}

func (s *RoutingService) candidatePool(ctx context.Context, organizationID string, teamID *string) ([]domain.Agent, error) {
	active := true
	return s.agents.List(ctx, repository.AgentFilter{
		OrganizationID: &organizationID,
		TeamID:         teamID,
		Roles:          domain.AssignableRoles,
		Active:         &active,
	})
}

func (s *RoutingService) workloadsByAgent(ctx context.Context, pool []domain.Agent) (map[string]domain.AgentWorkload, error) {
	ids := make([]string, 0, len(pool))
	for _, agent := range pool {
		ids = append(ids, agent.ID)
	}
	rows, err := s.workloads.ListByAgentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byAgent := make(map[string]domain.AgentWorkload, len(rows))
	for _, row := range rows {
		byAgent[row.AgentID] = row
	}
	return byAgent, nil
}

// resolveAssignee validates the target agent. A nil result means the agent
// is usable.
func (s *RoutingService) resolveAssignee(ctx context.Context, assigneeID string) (*domain.Agent, *AssignmentResult, error) {
	assignee, err := s.agents.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &AssignmentResult{Reason: ReasonAssigneeNotFound}, nil
		}
		return nil, nil, err
	}
	if !assignee.Active {
		return nil, &AssignmentResult{Reason: ReasonAssigneeInactive}, nil
	}
	return assignee, nil, nil
}

// writeAssignment persists the first assignment of a ticket and keeps the
// ledger and audit trail in step.
func (s *RoutingService) writeAssignment(ctx context.Context, ticket *domain.Ticket, assigneeID string, actorID *string) error {
	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = &assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.workloads.Increment(ctx, ticket.OrganizationID, assigneeID, s.now()); err != nil {
		return err
	}
	return s.recordAssigneeChange(ctx, ticket.ID, actorID, oldAssignee, &assigneeID, "")
}

func (s *RoutingService) recordAssigneeChange(ctx context.Context, ticketID string, actorID *string, oldAssignee, newAssignee *string, note string) error {
	if s.history == nil {
		return nil
	}
	return s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assignee_agent_id": oldAssignee,
		},
		NewValue: map[string]any{
			"assignee_agent_id": newAssignee,
		},
		Note: note,
	})
}

func (s *RoutingService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// MapAssignmentFailure translates a failed result into the DomainError the
// HTTP layer renders; routing code itself never throws for these.
func MapAssignmentFailure(result *AssignmentResult) error {
	switch result.Reason {
	case ReasonTicketNotFound:
		return apperrors.NewNotFound("ticket", nil)
	case ReasonAssigneeNotFound:
		return apperrors.NewNotFound("agent", nil)
	case ReasonAlreadyAssigned:
		return apperrors.NewConflict("ticket already assigned", nil)
	case ReasonAssigneeInactive:
		return apperrors.NewConflict("assignee inactive", nil)
	default:
		return apperrors.NewConflict("no matching rule or agent", nil)
	}
}
