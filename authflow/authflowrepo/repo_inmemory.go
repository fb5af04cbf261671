package authflowrepo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

var _ Repo = &InMemoryRepo{}

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Pending logins do not survive a restart.
type InMemoryRepo struct {
	mu     sync.Mutex
	logins map[string]*PendingLogin
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		logins: make(map[string]*PendingLogin),
	}
}

func (r *InMemoryRepo) Upsert(login *PendingLogin) error {
	if login == nil {
		return errors.New("login cannot be nil")
	}
	if login.State == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to prevent external modifications
	c := *login
	r.logins[login.State] = &c
	return nil
}

func (r *InMemoryRepo) Consume(state string, now time.Time) (*PendingLogin, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	login, exists := r.logins[state]
	if !exists {
		return nil, fmt.Errorf("%w: state %q is not pending", apperrors.ErrNotFound, state)
	}
	delete(r.logins, state)

	if !login.ExpiresAt.IsZero() && now.After(login.ExpiresAt) {
		return nil, fmt.Errorf("%w: state %q expired", apperrors.ErrNotFound, state)
	}

	c := *login
	return &c, nil
}

func (r *InMemoryRepo) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, login := range r.logins {
		if !login.ExpiresAt.IsZero() && now.After(login.ExpiresAt) {
			delete(r.logins, state)
			removed++
		}
	}
	return removed
}

func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logins)
}
