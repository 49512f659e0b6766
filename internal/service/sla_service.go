package service

import (
	"context"
	"errors"
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

// PolicyProvider resolves the active policy table for an organization. The
// redis cache and the plain repository both satisfy it.
type PolicyProvider interface {
	ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.SLAPolicy, error)
}

// SLAService computes response/resolution obligations point-in-time from
// timestamps already on the ticket; no timer process is involved.
type SLAService struct {
	tickets    repository.TicketRepository
	policies   PolicyProvider
	breaches   repository.SLABreachRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators.
type SLADependencies struct {
	TicketRepo  repository.TicketRepository
	Policies    PolicyProvider
	BreachRepo  repository.SLABreachRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewSLAService creates the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		tickets:    deps.TicketRepo,
		policies:   deps.Policies,
		breaches:   deps.BreachRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// SLACheckResult is the point-in-time obligation state of one ticket.
// Remaining minutes are whole minutes floored at zero. PolicyID is empty
// when no active policy covers the ticket's priority.
type SLACheckResult struct {
	PolicyID                   string
	ResponseBreached           bool
	ResolutionBreached         bool
	ResponseRemainingMinutes   int64
	ResolutionRemainingMinutes int64
}

// SLAStats aggregates breach counts over tickets created within a window.
type SLAStats struct {
	WindowDays         int
	TotalTickets       int
	ResponseBreaches   int
	ResolutionBreaches int
	ComplianceRate     float64
}

// Check evaluates the ticket against its organization's policy table. SLA
// tracking is opt-in per priority tier: no policy means an all-clear result.
func (s *SLAService) Check(ctx context.Context, ticketID string) (*SLACheckResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	policy, err := s.policyFor(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return &SLACheckResult{}, nil
	}

	firstReply, err := s.messages.FirstAgentReplyAt(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	result := s.evaluate(ticket, policy, firstReply)
	return result, nil
}

// evaluate runs the deadline arithmetic. Wall-clock only: the policy's
// BusinessHoursOnly flag is carried on the model but not consulted here.
func (s *SLAService) evaluate(ticket *domain.Ticket, policy *domain.SLAPolicy, firstReply *time.Time) *SLACheckResult {
	now := s.now()
	result := &SLACheckResult{PolicyID: policy.ID}

	responseBudget := time.Duration(policy.ResponseTimeMinutes) * time.Minute
	responseRef := now
	if firstReply != nil {
		responseRef = *firstReply
	}
	responseElapsed := responseRef.Sub(ticket.CreatedAt)
	result.ResponseBreached = responseElapsed > responseBudget
	result.ResponseRemainingMinutes = remainingMinutes(responseBudget, responseElapsed)

	resolutionBudget := time.Duration(policy.ResolutionTimeMinutes) * time.Minute
	switch {
	case ticket.ResolvedAt != nil:
		// clock stopped: breach is historical fact, nothing remains
		result.ResolutionBreached = ticket.ResolvedAt.Sub(ticket.CreatedAt) > resolutionBudget
		result.ResolutionRemainingMinutes = 0
	case ticket.Status.IsTerminal():
		// terminal without a captured resolved_at: do not penalize
		result.ResolutionBreached = false
		result.ResolutionRemainingMinutes = 0
	default:
		resolutionElapsed := now.Sub(ticket.CreatedAt)
		result.ResolutionBreached = resolutionElapsed > resolutionBudget
		result.ResolutionRemainingMinutes = remainingMinutes(resolutionBudget, resolutionElapsed)
	}

	return result
}

// remainingMinutes floors at zero and truncates to whole minutes, derived
// from millisecond differences.
func remainingMinutes(budget, elapsed time.Duration) int64 {
	if elapsed > budget {
		return 0
	}
	return (budget - elapsed).Milliseconds() / int64(time.Minute/time.Millisecond)
}

// RecordBreach appends an immutable breach fact. No deduplication: callers
// such as the periodic sweep check for prior facts first.
func (s *SLAService) RecordBreach(ctx context.Context, ticketID, policyID string, breachType domain.BreachType) (*domain.SLABreach, error) {
	breach := &domain.SLABreach{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		PolicyID:   policyID,
		BreachType: breachType,
		BreachedAt: s.now(),
	}
	if err := s.breaches.Append(ctx, breach); err != nil {
		return nil, err
	}

	s.metrics.RecordEngineOp("sla_breach_" + string(breachType))
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSLABreachRecorded,
		TicketID:  ticketID,
		Timestamp: s.now(),
		Payload: events.SLABreachRecordedPayload{
			BreachID:   breach.ID,
			PolicyID:   policyID,
			BreachType: breachType,
		},
	})
	return breach, nil
}

// Acknowledge sets the acknowledgement fields. Re-acknowledgement overwrites
// (last write wins).
func (s *SLAService) Acknowledge(ctx context.Context, breachID, acknowledgerID string) error {
	if err := s.breaches.Acknowledge(ctx, breachID, acknowledgerID, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("breach", map[string]any{"breach_id": breachID})
		}
		return err
	}
	return nil
}

// Stats recomputes breach counts over the window with the same per-ticket
// logic as Check, so it reflects current truth even for breaches never
// recorded as facts.
func (s *SLAService) Stats(ctx context.Context, organizationID string, windowDays int) (*SLAStats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := s.now().AddDate(0, 0, -windowDays)

	tickets, err := s.tickets.ListCreatedSince(ctx, organizationID, since)
	if err != nil {
		return nil, err
	}

	policies, err := s.policies.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	byPriority := policiesByPriority(policies)

	stats := &SLAStats{WindowDays: windowDays, TotalTickets: len(tickets)}
	for i := range tickets {
		ticket := &tickets[i]
		policy, ok := byPriority[ticket.Priority]
		if !ok {
			continue
		}
		firstReply, err := s.messages.FirstAgentReplyAt(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		result := s.evaluate(ticket, &policy, firstReply)
		if result.ResponseBreached {
			stats.ResponseBreaches++
		}
		if result.ResolutionBreached {
			stats.ResolutionBreaches++
		}
	}

	if stats.TotalTickets == 0 {
		stats.ComplianceRate = 100
	} else {
		// breaches are counted per budget, so a ticket blowing both counts
		// twice and the raw rate can go negative; the clamp absorbs that
		breaches := stats.ResponseBreaches + stats.ResolutionBreaches
		rate := float64(stats.TotalTickets-breaches) / float64(stats.TotalTickets) * 100
		stats.ComplianceRate = clampRate(rate)
	}
	return stats, nil
}

// SweepBreaches records facts for current breaches within the window that
// have no prior fact of the same type. Safe to run concurrently with
// foreground checks; a duplicate from a racing sweep is an accepted
// trade-off.
func (s *SLAService) SweepBreaches(ctx context.Context, organizationID string, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := s.now().AddDate(0, 0, -windowDays)

	tickets, err := s.tickets.ListCreatedSince(ctx, organizationID, since)
	if err != nil {
		return 0, err
	}
	policies, err := s.policies.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}
	byPriority := policiesByPriority(policies)

	recorded := 0
	for i := range tickets {
		ticket := &tickets[i]
		policy, ok := byPriority[ticket.Priority]
		if !ok {
			continue
		}
		firstReply, err := s.messages.FirstAgentReplyAt(ctx, ticket.ID)
		if err != nil {
			return recorded, err
		}
		result := s.evaluate(ticket, &policy, firstReply)

		if result.ResponseBreached {
			n, err := s.recordIfAbsent(ctx, ticket.ID, policy.ID, domain.BreachTypeResponse)
			if err != nil {
				return recorded, err
			}
			recorded += n
		}
		if result.ResolutionBreached {
			n, err := s.recordIfAbsent(ctx, ticket.ID, policy.ID, domain.BreachTypeResolution)
			if err != nil {
				return recorded, err
			}
			recorded += n
		}
	}
	if recorded > 0 {
		s.logger.Info("breach sweep recorded facts",
			zap.String("organization_id", organizationID),
			zap.Int("count", recorded),
		)
	}
	return recorded, nil
}

func (s *SLAService) recordIfAbsent(ctx context.Context, ticketID, policyID string, breachType domain.BreachType) (int, error) {
	exists, err := s.breaches.ExistsForTicket(ctx, ticketID, breachType)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, nil
	}
	if _, err := s.RecordBreach(ctx, ticketID, policyID, breachType); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *SLAService) policyFor(ctx context.Context, ticket *domain.Ticket) (*domain.SLAPolicy, error) {
	policies, err := s.policies.ListActiveByOrganization(ctx, ticket.OrganizationID)
	if err != nil {
		return nil, err
	}
	for i := range policies {
		if policies[i].Priority == ticket.Priority {
			return &policies[i], nil
		}
	}
	return nil, nil
}

func policiesByPriority(policies []domain.SLAPolicy) map[domain.TicketPriority]domain.SLAPolicy {
	byPriority := make(map[domain.TicketPriority]domain.SLAPolicy, len(policies))
	for _, policy := range policies {
		if _, ok := byPriority[policy.Priority]; !ok {
			byPriority[policy.Priority] = policy
		}
	}
	return byPriority
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

func (s *SLAService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
