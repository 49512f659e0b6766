package events

import (
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketReassigned  EventType = "ticket_reassigned"
	EventLockForceReleased EventType = "lock_force_released"
	EventSLABreachRecorded EventType = "sla_breach_recorded"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	ActorAgentID *string     `json:"actor_agent_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeAgentID string                    `json:"assignee_agent_id"`
	RuleName        string                    `json:"rule_name,omitempty"`
	Strategy        domain.AssignmentStrategy `json:"strategy,omitempty"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID string  `json:"new_assignee_id"`
	Reason        string  `json:"reason,omitempty"`
}

// LockForceReleasedPayload payload.
type LockForceReleasedPayload struct {
	HolderAgentID string `json:"holder_agent_id"`
}

// SLABreachRecordedPayload payload.
type SLABreachRecordedPayload struct {
	BreachID   string            `json:"breach_id"`
	PolicyID   string            `json:"policy_id"`
	BreachType domain.BreachType `json:"breach_type"`
}
