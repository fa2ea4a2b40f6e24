package domain

import "time"

// Subscription is a resold subscription list with an expiry date that
// renewals extend. ExpiresAt uses the approximate-month policy: one
// month of renewal equals 30 days.
type Subscription struct {
	ID             string
	Name           string
	OwnerID        int64
	Cost           int
	ExpiresAt      *time.Time
	Notes          *string
	LastReminderAt *time.Time
	CreatedAt      time.Time
}

// DaysLeft returns whole days until expiry, zero when already expired
// or no expiry is set.
func (s *Subscription) DaysLeft(now time.Time) int {
	if s.ExpiresAt == nil || !s.ExpiresAt.After(now) {
		return 0
	}
	return int(s.ExpiresAt.Sub(now).Hours() / 24)
}
