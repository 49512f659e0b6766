package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/observability"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

var ticketCreatedAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type slaFixture struct {
	svc      *SLAService
	tickets  *fakeTicketRepo
	breaches *fakeBreachRepo
	messages *fakeMessageRepo
	clock    *mockClock
}

func newSLAFixture(policies []domain.SLAPolicy, tickets ...*domain.Ticket) *slaFixture {
	clock := newMockClock(ticketCreatedAt)
	ticketRepo := newFakeTicketRepo(tickets...)
	breaches := newFakeBreachRepo()
	messages := newFakeMessageRepo()
	svc := NewSLAService(SLADependencies{
		TicketRepo:  ticketRepo,
		Policies:    &fakePolicyProvider{policies: policies},
		BreachRepo:  breaches,
		MessageRepo: messages,
		Dispatcher:  &recordingDispatcher{},
		Metrics:     observability.NewMetrics(),
		Now:         clock.Now,
	})
	return &slaFixture{svc: svc, tickets: ticketRepo, breaches: breaches, messages: messages, clock: clock}
}

func normalPolicy(responseMinutes, resolutionMinutes int) domain.SLAPolicy {
	return domain.SLAPolicy{
		ID:                    "policy-1",
		OrganizationID:        testOrg,
		Priority:              domain.TicketPriorityNormal,
		ResponseTimeMinutes:   responseMinutes,
		ResolutionTimeMinutes: resolutionMinutes,
		Active:                true,
	}
}

func slaTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:             id,
		OrganizationID: testOrg,
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityNormal,
		Channel:        domain.TicketChannelEmail,
		CreatedAt:      ticketCreatedAt,
	}
}

func TestCheck_LateFirstReplyBreachesResponse(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, slaTicket("ticket-1"))
	f.messages.firstReplies["ticket-1"] = ticketCreatedAt.Add(90 * time.Minute)
	f.clock.Advance(2 * time.Hour)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, "policy-1", result.PolicyID)
	assert.True(t, result.ResponseBreached)
	assert.Equal(t, int64(0), result.ResponseRemainingMinutes)
}

func TestCheck_OpenTicketReportsResolutionRemaining(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, slaTicket("ticket-1"))
	f.clock.Advance(1000 * time.Minute)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.False(t, result.ResolutionBreached)
	assert.Equal(t, int64(440), result.ResolutionRemainingMinutes)
}

func TestCheck_NoReplyYetCountsAgainstResponseClock(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, slaTicket("ticket-1"))
	f.clock.Advance(45 * time.Minute)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.False(t, result.ResponseBreached)
	assert.Equal(t, int64(15), result.ResponseRemainingMinutes)
}

func TestCheck_NoPolicyForPriorityIsAllClear(t *testing.T) {
	urgentOnly := normalPolicy(60, 1440)
	urgentOnly.Priority = domain.TicketPriorityUrgent

	f := newSLAFixture([]domain.SLAPolicy{urgentOnly}, slaTicket("ticket-1"))
	f.clock.Advance(72 * time.Hour)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, &SLACheckResult{}, result)
}

func TestCheck_UnknownTicket(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)})

	_, err := f.svc.Check(context.Background(), "ticket-missing")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestCheck_ResolvedTicketBreachIsHistoricalFact(t *testing.T) {
	ticket := slaTicket("ticket-1")
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = timePtr(ticketCreatedAt.Add(2000 * time.Minute))

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, ticket)
	// evaluation time is irrelevant once the clock stopped
	f.clock.Advance(30 * 24 * time.Hour)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.True(t, result.ResolutionBreached)
	assert.Equal(t, int64(0), result.ResolutionRemainingMinutes)
}

func TestCheck_ResolvedWithinBudgetNeverBreaches(t *testing.T) {
	ticket := slaTicket("ticket-1")
	ticket.Status = domain.TicketStatusResolved
	ticket.ResolvedAt = timePtr(ticketCreatedAt.Add(100 * time.Minute))

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, ticket)
	f.clock.Advance(30 * 24 * time.Hour)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.False(t, result.ResolutionBreached)
}

func TestCheck_TerminalWithoutResolvedAtDoesNotPenalize(t *testing.T) {
	ticket := slaTicket("ticket-1")
	ticket.Status = domain.TicketStatusClosed

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, ticket)
	f.clock.Advance(2000 * time.Minute)

	result, err := f.svc.Check(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.False(t, result.ResolutionBreached)
	assert.Equal(t, int64(0), result.ResolutionRemainingMinutes)
}

func TestRecordBreach_AppendsFact(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)})

	breach, err := f.svc.RecordBreach(context.Background(), "ticket-1", "policy-1", domain.BreachTypeResponse)
	require.NoError(t, err)
	assert.NotEmpty(t, breach.ID)
	assert.Equal(t, f.clock.Now(), breach.BreachedAt)
	assert.Len(t, f.breaches.order, 1)
}

func TestAcknowledge_LastWriteWins(t *testing.T) {
	f := newSLAFixture(nil)
	ctx := context.Background()

	breach, err := f.svc.RecordBreach(ctx, "ticket-1", "policy-1", domain.BreachTypeResolution)
	require.NoError(t, err)

	require.NoError(t, f.svc.Acknowledge(ctx, breach.ID, "lead-1"))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.Acknowledge(ctx, breach.ID, "lead-2"))

	stored, err := f.breaches.GetByID(ctx, breach.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AcknowledgedBy)
	assert.Equal(t, "lead-2", *stored.AcknowledgedBy)
	assert.Equal(t, f.clock.Now(), *stored.AcknowledgedAt)
}

func TestAcknowledge_UnknownBreach(t *testing.T) {
	f := newSLAFixture(nil)

	err := f.svc.Acknowledge(context.Background(), "breach-missing", "lead-1")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestStats_EmptyWindowIsFullCompliance(t *testing.T) {
	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)})

	stats, err := f.svc.Stats(context.Background(), testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTickets)
	assert.Equal(t, float64(100), stats.ComplianceRate)
}

func TestStats_CountsBreachesAcrossWindow(t *testing.T) {
	// healthy: replied and resolved in time
	healthy := slaTicket("ticket-healthy")
	healthy.Status = domain.TicketStatusResolved
	healthy.ResolvedAt = timePtr(ticketCreatedAt.Add(30 * time.Minute))

	// lateReply: response breached, resolution fine
	lateReply := slaTicket("ticket-late-reply")
	lateReply.Status = domain.TicketStatusResolved
	lateReply.ResolvedAt = timePtr(ticketCreatedAt.Add(3 * time.Hour))

	// stale: answered promptly but still open past the resolution budget
	stale := slaTicket("ticket-stale")

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, healthy, lateReply, stale)
	f.messages.firstReplies["ticket-healthy"] = ticketCreatedAt.Add(10 * time.Minute)
	f.messages.firstReplies["ticket-late-reply"] = ticketCreatedAt.Add(2 * time.Hour)
	f.messages.firstReplies["ticket-stale"] = ticketCreatedAt.Add(30 * time.Minute)
	f.clock.Advance(2000 * time.Minute)

	stats, err := f.svc.Stats(context.Background(), testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTickets)
	assert.Equal(t, 1, stats.ResponseBreaches)
	assert.Equal(t, 1, stats.ResolutionBreaches)
	// (3 tickets - 2 breaches) / 3
	assert.InDelta(t, 33.33, stats.ComplianceRate, 0.01)
}

func TestStats_TicketBreachingBothBudgetsCountsTwice(t *testing.T) {
	// clean: replied and resolved in time
	clean := slaTicket("ticket-clean")
	clean.Status = domain.TicketStatusResolved
	clean.ResolvedAt = timePtr(ticketCreatedAt.Add(30 * time.Minute))

	// doubled: never answered, still open past both budgets
	doubled := slaTicket("ticket-doubled")

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, clean, doubled)
	f.messages.firstReplies["ticket-clean"] = ticketCreatedAt.Add(10 * time.Minute)
	f.clock.Advance(2000 * time.Minute)

	stats, err := f.svc.Stats(context.Background(), testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTickets)
	assert.Equal(t, 1, stats.ResponseBreaches)
	assert.Equal(t, 1, stats.ResolutionBreaches)
	// (2 tickets - 2 breaches) / 2; the double breach wipes out the clean ticket
	assert.Zero(t, stats.ComplianceRate)
}

func TestStats_RateClampsAtZeroWhenBreachesExceedTickets(t *testing.T) {
	doubled := slaTicket("ticket-doubled")

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, doubled)
	f.clock.Advance(2000 * time.Minute)

	stats, err := f.svc.Stats(context.Background(), testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTickets)
	assert.Equal(t, 2, stats.ResponseBreaches+stats.ResolutionBreaches)
	assert.Zero(t, stats.ComplianceRate)
}

func TestStats_TicketsWithoutPolicyAreSkipped(t *testing.T) {
	low := slaTicket("ticket-low")
	low.Priority = domain.TicketPriorityLow

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, low)
	f.clock.Advance(2000 * time.Minute)

	stats, err := f.svc.Stats(context.Background(), testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTickets)
	assert.Equal(t, 0, stats.ResponseBreaches)
	assert.Equal(t, float64(100), stats.ComplianceRate)
}

func TestSweepBreaches_RecordsEachBreachOnce(t *testing.T) {
	stale := slaTicket("ticket-stale")

	f := newSLAFixture([]domain.SLAPolicy{normalPolicy(60, 1440)}, stale)
	f.clock.Advance(2000 * time.Minute)
	ctx := context.Background()

	recorded, err := f.svc.SweepBreaches(ctx, testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, recorded)
	assert.Len(t, f.breaches.order, 2)

	// a second sweep finds the facts already on file
	again, err := f.svc.SweepBreaches(ctx, testOrg, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
	assert.Len(t, f.breaches.order, 2)
}
