package domain

import "time"

// TicketLock is a renewable editing lease over a single ticket. At most one
// row exists per ticket; the row is deleted, never soft-marked, on release
// or expiry.
type TicketLock struct {
	TicketID  string
	HolderID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the lease has lapsed at the given instant.
func (l TicketLock) ExpiredAt(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
