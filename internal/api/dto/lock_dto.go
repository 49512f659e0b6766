package dto

import "time"

// LockGrantResponse reports the outcome of an acquire attempt.
type LockGrantResponse struct {
	Granted   bool       `json:"granted"`
	HolderID  string     `json:"holder_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LockStatusResponse reports the observable lock state of a ticket.
type LockStatusResponse struct {
	Locked    bool       `json:"locked"`
	HolderID  string     `json:"holder_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// BulkAcquireRequest lists tickets to lock for the acting agent.
type BulkAcquireRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// BulkAcquireFailure reports one denied ticket.
type BulkAcquireFailure struct {
	TicketID string `json:"ticket_id"`
	HolderID string `json:"holder_id"`
}

// BulkAcquireResponse reports per-ticket outcomes.
type BulkAcquireResponse struct {
	Acquired []string             `json:"acquired"`
	Failed   []BulkAcquireFailure `json:"failed"`
}
