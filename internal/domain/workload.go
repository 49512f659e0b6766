package domain

import "time"

// AgentWorkload is the per-agent ledger row of currently open assigned
// tickets. Rows are created lazily on first assignment and the count is
// never allowed below zero.
type AgentWorkload struct {
	AgentID        string
	OrganizationID string
	OpenTickets    int
	LastAssignedAt *time.Time
	UpdatedAt      time.Time
}
