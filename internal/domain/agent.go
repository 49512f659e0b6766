package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent    AgentRole = "AGENT"
	AgentRoleTeamLead AgentRole = "TEAM_LEAD"
	AgentRoleAdmin    AgentRole = "ADMIN"
)

// AssignableRoles are the roles eligible to receive ticket assignments.
var AssignableRoles = []AgentRole{AgentRoleAgent, AgentRoleTeamLead, AgentRoleAdmin}

// CanForceRelease reports whether the role may override another agent's lock.
func (r AgentRole) CanForceRelease() bool {
	return r == AgentRoleTeamLead || r == AgentRoleAdmin
}

// Agent models a support operator resolved from the identity directory.
type Agent struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Role           AgentRole
	TeamID         *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
