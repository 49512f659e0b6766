package dto

import "time"

// ManualAssignRequest assigns a ticket to a named agent.
type ManualAssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ReassignRequest moves a ticket to a new assignee.
type ReassignRequest struct {
	AssigneeID string `json:"assignee_id"`
	Reason     string `json:"reason,omitempty"`
}

// AssignmentResponse is the structured routing outcome.
type AssignmentResponse struct {
	Success    bool    `json:"success"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	RuleName   string  `json:"rule_name,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// WorkloadResponse is one agent's ledger row.
type WorkloadResponse struct {
	AgentID        string     `json:"agent_id"`
	OpenTickets    int        `json:"open_tickets"`
	LastAssignedAt *time.Time `json:"last_assigned_at,omitempty"`
}
