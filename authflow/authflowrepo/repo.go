package authflowrepo

import "time"

// PendingLogin is a login attempt that was redirected to the provider and has not come back yet.
type PendingLogin struct {
	State     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repo interface {
	Upsert(login *PendingLogin) error
	// Consume returns the pending login and removes it, so a state can be redeemed once.
	Consume(state string, now time.Time) (*PendingLogin, error)
	// Prune drops expired entries and returns how many were removed.
	Prune(now time.Time) int
}
