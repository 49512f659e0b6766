package dto

import "time"

// SLACheckResponse is the point-in-time obligation state of a ticket.
type SLACheckResponse struct {
	PolicyID                   string `json:"policy_id,omitempty"`
	ResponseBreached           bool   `json:"response_breached"`
	ResolutionBreached         bool   `json:"resolution_breached"`
	ResponseRemainingMinutes   int64  `json:"response_remaining_minutes"`
	ResolutionRemainingMinutes int64  `json:"resolution_remaining_minutes"`
}

// RecordBreachRequest appends a breach fact.
type RecordBreachRequest struct {
	TicketID   string `json:"ticket_id"`
	PolicyID   string `json:"policy_id"`
	BreachType string `json:"breach_type"`
}

// BreachResponse is a persisted breach fact.
type BreachResponse struct {
	ID             string     `json:"id"`
	TicketID       string     `json:"ticket_id"`
	PolicyID       string     `json:"policy_id"`
	BreachType     string     `json:"breach_type"`
	BreachedAt     time.Time  `json:"breached_at"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// SLAStatsResponse aggregates breach counts over a window.
type SLAStatsResponse struct {
	WindowDays         int     `json:"window_days"`
	TotalTickets       int     `json:"total_tickets"`
	ResponseBreaches   int     `json:"response_breaches"`
	ResolutionBreaches int     `json:"resolution_breaches"`
	ComplianceRate     float64 `json:"compliance_rate"`
}
