package domain

import "time"

// AssignmentStrategy enumerates the routing strategies. The set is closed;
// dispatch is by enum, not plugins.
type AssignmentStrategy string

const (
	StrategyRoundRobin  AssignmentStrategy = "ROUND_ROBIN"
	StrategyLeastBusy   AssignmentStrategy = "LEAST_BUSY"
	StrategyRandom      AssignmentStrategy = "RANDOM"
	StrategySkillsBased AssignmentStrategy = "SKILLS_BASED"
)

// RuleCondition is the predicate a ticket must satisfy for a rule to apply.
// Empty slices match everything.
type RuleCondition struct {
	Priorities []TicketPriority `json:"priorities,omitempty"`
	Channels   []TicketChannel  `json:"channels,omitempty"`
}

// Matches evaluates the condition against a ticket.
func (c RuleCondition) Matches(ticket *Ticket) bool {
	if len(c.Priorities) > 0 && !containsPriority(c.Priorities, ticket.Priority) {
		return false
	}
	if len(c.Channels) > 0 && !containsChannel(c.Channels, ticket.Channel) {
		return false
	}
	return true
}

func containsPriority(list []TicketPriority, p TicketPriority) bool {
	for _, item := range list {
		if item == p {
			return true
		}
	}
	return false
}

func containsChannel(list []TicketChannel, ch TicketChannel) bool {
	for _, item := range list {
		if item == ch {
			return true
		}
	}
	return false
}

// AssignmentRule is static per-organization routing configuration, read-only
// to the router. Higher PriorityRank evaluates first.
type AssignmentRule struct {
	ID             string
	OrganizationID string
	Name           string
	Strategy       AssignmentStrategy
	Condition      RuleCondition
	TargetTeamID   *string
	PriorityRank   int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
