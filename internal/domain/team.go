package domain

import "time"

// Team groups agents for scoped assignment rules.
type Team struct {
	ID             string
	OrganizationID string
	Name           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
