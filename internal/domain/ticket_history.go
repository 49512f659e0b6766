package domain

import "time"

// ChangeType identifies what a history entry records.
type ChangeType string

const (
	ChangeTypeAssignee ChangeType = "ASSIGNEE"
	ChangeTypeStatus   ChangeType = "STATUS"
	ChangeTypePriority ChangeType = "PRIORITY"
)

// TicketHistory is the audit trail entry for a ticket mutation.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  ChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	Note        string
	CreatedAt   time.Time
}
