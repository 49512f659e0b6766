package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/events"
	"github.com/spec-kit/ticket-routing/internal/repository"
)

// mockClock is an injectable clock for deterministic lease and deadline math.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock(start time.Time) *mockClock {
	return &mockClock{now: start}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLockRepo struct {
	locks map[string]domain.TicketLock
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: make(map[string]domain.TicketLock)}
}

func (r *fakeLockRepo) Get(_ context.Context, ticketID string) (*domain.TicketLock, error) {
	lock, ok := r.locks[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := lock
	return &copied, nil
}

func (r *fakeLockRepo) Upsert(_ context.Context, lock *domain.TicketLock) error {
	if existing, ok := r.locks[lock.TicketID]; ok {
		lock.CreatedAt = existing.CreatedAt
	} else if lock.CreatedAt.IsZero() {
		lock.CreatedAt = lock.ExpiresAt
	}
	r.locks[lock.TicketID] = *lock
	return nil
}

func (r *fakeLockRepo) Delete(_ context.Context, ticketID string) error {
	delete(r.locks, ticketID)
	return nil
}

func (r *fakeLockRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var swept int64
	for id, lock := range r.locks {
		if !lock.ExpiresAt.After(before) {
			delete(r.locks, id)
			swept++
		}
	}
	return swept, nil
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		repo.tickets[t.ID] = t
	}
	return repo
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) ListCreatedSince(_ context.Context, organizationID string, since time.Time) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range r.tickets {
		if t.OrganizationID == organizationID && !t.CreatedAt.Before(since) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTicketRepo) CountOpenByAssignee(_ context.Context, organizationID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, t := range r.tickets {
		if t.OrganizationID != organizationID || t.AssigneeID == nil || t.Status.IsTerminal() {
			continue
		}
		counts[*t.AssigneeID]++
	}
	return counts, nil
}

type fakeAgentRepo struct {
	agents []domain.Agent
}

func newFakeAgentRepo(agents ...domain.Agent) *fakeAgentRepo {
	return &fakeAgentRepo{agents: agents}
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	for i := range r.agents {
		if r.agents[i].ID == id {
			copied := r.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	var result []domain.Agent
	for _, agent := range r.agents {
		if filter.OrganizationID != nil && agent.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.TeamID != nil && (agent.TeamID == nil || *agent.TeamID != *filter.TeamID) {
			continue
		}
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		if len(filter.Roles) > 0 && !roleIn(filter.Roles, agent.Role) {
			continue
		}
		result = append(result, agent)
	}
	return result, nil
}

func (r *fakeAgentRepo) ListOrganizationIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, agent := range r.agents {
		if _, ok := seen[agent.OrganizationID]; !ok {
			seen[agent.OrganizationID] = struct{}{}
			ids = append(ids, agent.OrganizationID)
		}
	}
	return ids, nil
}

func roleIn(roles []domain.AgentRole, role domain.AgentRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type fakeTeamRepo struct {
	teams map[string]domain.Team
}

func newFakeTeamRepo(teams ...domain.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{teams: make(map[string]domain.Team)}
	for _, team := range teams {
		repo.teams[team.ID] = team
	}
	return repo
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := team
	return &copied, nil
}

type fakeRuleRepo struct {
	rules []domain.AssignmentRule
}

func newFakeRuleRepo(rules ...domain.AssignmentRule) *fakeRuleRepo {
	return &fakeRuleRepo{rules: rules}
}

func (r *fakeRuleRepo) ListActiveByOrganization(_ context.Context, organizationID string) ([]domain.AssignmentRule, error) {
	var result []domain.AssignmentRule
	for _, rule := range r.rules {
		if rule.OrganizationID == organizationID && rule.Active {
			result = append(result, rule)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].PriorityRank > result[j].PriorityRank })
	return result, nil
}

type fakeWorkloadRepo struct {
	workloads map[string]domain.AgentWorkload
}

func newFakeWorkloadRepo() *fakeWorkloadRepo {
	return &fakeWorkloadRepo{workloads: make(map[string]domain.AgentWorkload)}
}

func (r *fakeWorkloadRepo) Get(_ context.Context, agentID string) (*domain.AgentWorkload, error) {
	workload, ok := r.workloads[agentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := workload
	return &copied, nil
}

func (r *fakeWorkloadRepo) ListByOrganization(_ context.Context, organizationID string) ([]domain.AgentWorkload, error) {
	var result []domain.AgentWorkload
	for _, w := range r.workloads {
		if w.OrganizationID == organizationID {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AgentID < result[j].AgentID })
	return result, nil
}

func (r *fakeWorkloadRepo) ListByAgentIDs(_ context.Context, agentIDs []string) ([]domain.AgentWorkload, error) {
	var result []domain.AgentWorkload
	for _, id := range agentIDs {
		if w, ok := r.workloads[id]; ok {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *fakeWorkloadRepo) Increment(_ context.Context, organizationID, agentID string, assignedAt time.Time) error {
	workload, ok := r.workloads[agentID]
	if !ok {
		workload = domain.AgentWorkload{AgentID: agentID, OrganizationID: organizationID}
	}
	workload.OpenTickets++
	at := assignedAt
	workload.LastAssignedAt = &at
	r.workloads[agentID] = workload
	return nil
}

func (r *fakeWorkloadRepo) Decrement(_ context.Context, agentID string) error {
	workload, ok := r.workloads[agentID]
	if !ok || workload.OpenTickets == 0 {
		return nil
	}
	workload.OpenTickets--
	r.workloads[agentID] = workload
	return nil
}

func (r *fakeWorkloadRepo) Set(_ context.Context, organizationID, agentID string, openTickets int) error {
	workload, ok := r.workloads[agentID]
	if !ok {
		workload = domain.AgentWorkload{AgentID: agentID, OrganizationID: organizationID}
	}
	workload.OpenTickets = openTickets
	r.workloads[agentID] = workload
	return nil
}

func (r *fakeWorkloadRepo) openTickets(agentID string) int {
	return r.workloads[agentID].OpenTickets
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.entries = append(r.entries, *entry)
	return nil
}

type fakePolicyProvider struct {
	policies []domain.SLAPolicy
}

func (p *fakePolicyProvider) ListActiveByOrganization(_ context.Context, organizationID string) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for _, policy := range p.policies {
		if policy.OrganizationID == organizationID && policy.Active {
			result = append(result, policy)
		}
	}
	return result, nil
}

type fakeBreachRepo struct {
	breaches map[string]*domain.SLABreach
	order    []string
}

func newFakeBreachRepo() *fakeBreachRepo {
	return &fakeBreachRepo{breaches: make(map[string]*domain.SLABreach)}
}

func (r *fakeBreachRepo) Append(_ context.Context, breach *domain.SLABreach) error {
	copied := *breach
	r.breaches[breach.ID] = &copied
	r.order = append(r.order, breach.ID)
	return nil
}

func (r *fakeBreachRepo) GetByID(_ context.Context, id string) (*domain.SLABreach, error) {
	breach, ok := r.breaches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *breach
	return &copied, nil
}

func (r *fakeBreachRepo) Acknowledge(_ context.Context, id, acknowledgerID string, at time.Time) error {
	breach, ok := r.breaches[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ackAt := at
	breach.AcknowledgedBy = &acknowledgerID
	breach.AcknowledgedAt = &ackAt
	return nil
}

func (r *fakeBreachRepo) ExistsForTicket(_ context.Context, ticketID string, breachType domain.BreachType) (bool, error) {
	for _, breach := range r.breaches {
		if breach.TicketID == ticketID && breach.BreachType == breachType {
			return true, nil
		}
	}
	return false, nil
}

type fakeMessageRepo struct {
	firstReplies map[string]time.Time
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{firstReplies: make(map[string]time.Time)}
}

func (r *fakeMessageRepo) FirstAgentReplyAt(_ context.Context, ticketID string) (*time.Time, error) {
	at, ok := r.firstReplies[ticketID]
	if !ok {
		return nil, nil
	}
	copied := at
	return &copied, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
