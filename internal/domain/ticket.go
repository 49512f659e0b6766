package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen              TicketStatus = "OPEN"
	TicketStatusInProgress        TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingOnCustomer TicketStatus = "WAITING_ON_CUSTOMER"
	TicketStatusEscalated         TicketStatus = "ESCALATED"
	TicketStatusResolved          TicketStatus = "RESOLVED"
	TicketStatusClosed            TicketStatus = "CLOSED"
)

// OpenStatuses are the statuses counted toward an agent's live workload.
var OpenStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingOnCustomer,
	TicketStatusEscalated,
}

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketChannel identifies the intake channel of a ticket.
type TicketChannel string

const (
	TicketChannelWeb   TicketChannel = "WEB"
	TicketChannelEmail TicketChannel = "EMAIL"
	TicketChannelChat  TicketChannel = "CHAT"
	TicketChannelPhone TicketChannel = "PHONE"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             string
	OrganizationID string
	RequesterID    string
	TeamID         *string
	AssigneeID     *string
	Title          string
	Status         TicketStatus
	Priority       TicketPriority
	Channel        TicketChannel
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}
