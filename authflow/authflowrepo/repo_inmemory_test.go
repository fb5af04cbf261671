package authflowrepo_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-publish-agent/authflow/authflowrepo"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_ConsumeOnce(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(&authflowrepo.PendingLogin{
		State:     "abc",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}))

	login, err := repo.Consume("abc", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "abc", login.State)

	_, err = repo.Consume("abc", now.Add(time.Minute))
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInMemoryRepo_Expired(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(&authflowrepo.PendingLogin{State: "old", ExpiresAt: now}))
	require.NoError(t, repo.Upsert(&authflowrepo.PendingLogin{State: "new", ExpiresAt: now.Add(time.Hour)}))

	_, err := repo.Consume("old", now.Add(time.Second))
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Upsert(&authflowrepo.PendingLogin{State: "old", ExpiresAt: now}))
	require.Equal(t, 1, repo.Prune(now.Add(time.Second)))
	require.Equal(t, 1, repo.Len())
}

func TestInMemoryRepo_Validation(t *testing.T) {
	repo := authflowrepo.NewInMemoryRepo()

	require.Error(t, repo.Upsert(nil))
	require.Error(t, repo.Upsert(&authflowrepo.PendingLogin{}))
	_, err := repo.Consume("", time.Now())
	require.Error(t, err)
}
