package domain

import "time"

// SLAPolicy defines per-priority time budgets for an organization. The
// BusinessHoursOnly flag is stored and surfaced but deadline arithmetic is
// wall-clock; see the tracker for the known simplification.
type SLAPolicy struct {
	ID                    string
	OrganizationID        string
	Priority              TicketPriority
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
	BusinessHoursOnly     bool
	Active                bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// BreachType distinguishes which budget was exceeded.
type BreachType string

const (
	BreachTypeResponse   BreachType = "response"
	BreachTypeResolution BreachType = "resolution"
)

// SLABreach is an append-only fact that a budget was exceeded. Only the
// acknowledgement fields are ever written after creation.
type SLABreach struct {
	ID             string
	TicketID       string
	PolicyID       string
	BreachType     BreachType
	BreachedAt     time.Time
	AcknowledgedBy *string
	AcknowledgedAt *time.Time
}
