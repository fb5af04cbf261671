package credentials_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-publish-agent/credentials"
	"github.com/jrsteele09/go-publish-agent/credentials/providerfake"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/stretchr/testify/require"
)

const passphrase = "0123456789abcdef0123456789abcdef"

type testFixture struct {
	store    *tokenstore.FileStore
	provider *providerfake.FakeProvider
	manager  *credentials.Manager
}

func setupTestFixture(t *testing.T) testFixture {
	t.Helper()
	store := tokenstore.NewFileStore(
		filepath.Join(t.TempDir(), "tokens.json"),
		tokenstore.NewCipher([]byte("0123456789abcdef")),
	)
	provider := providerfake.New()
	return testFixture{
		store:    store,
		provider: provider,
		manager:  credentials.NewManager(store, provider, passphrase),
	}
}

func TestGetValidAccessToken_Live(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
	f.provider.Live["A1"] = true

	token, err := f.manager.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A1", token)
	require.Equal(t, 0, f.provider.RefreshCount())

	stored, err := f.store.Load(passphrase)
	require.NoError(t, err)
	require.Equal(t, tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, stored)
}

func TestGetValidAccessToken_Refresh(t *testing.T) {
	testCases := []struct {
		name          string
		refreshResult tokenstore.Pair
		expectedPair  tokenstore.Pair
	}{
		{
			name:          "provider rotates refresh token",
			refreshResult: tokenstore.Pair{AccessToken: "A2", RefreshToken: "R2"},
			expectedPair:  tokenstore.Pair{AccessToken: "A2", RefreshToken: "R2"},
		},
		{
			name:          "provider omits refresh token",
			refreshResult: tokenstore.Pair{AccessToken: "A2"},
			expectedPair:  tokenstore.Pair{AccessToken: "A2", RefreshToken: "R1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
			f.provider.RefreshResult = tc.refreshResult

			token, err := f.manager.GetValidAccessToken(context.Background())
			require.NoError(t, err)
			require.Equal(t, "A2", token)
			require.Equal(t, []string{"R1"}, f.provider.RefreshCalls)

			stored, err := f.store.Load(passphrase)
			require.NoError(t, err)
			require.Equal(t, tc.expectedPair, stored)
		})
	}
}

func TestGetValidAccessToken_Missing(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.GetValidAccessToken(context.Background())
	require.ErrorIs(t, err, apperrors.ErrCredentialsMissing)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Empty(t, f.provider.ProbeCalls)
}

func TestGetValidAccessToken_RefreshFails(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
	upstream := errors.New("invalid_grant")
	f.provider.RefreshErr = upstream

	_, err := f.manager.GetValidAccessToken(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.ErrorIs(t, err, upstream)

	stored, err := f.store.Load(passphrase)
	require.NoError(t, err)
	require.Equal(t, "A1", stored.AccessToken, "a failed refresh must not touch the stored pair")
}

func TestGetValidAccessToken_ConcurrentCallersShareRefresh(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
	f.provider.RefreshResult = tokenstore.Pair{AccessToken: "A2", RefreshToken: "R2"}
	f.provider.Live["A2"] = true

	const callers = 10
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = f.manager.GetValidAccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "A2", tokens[i])
	}
	require.Equal(t, 1, f.provider.RefreshCount())
}

func TestGetValidAccessToken_CancelledCallerDoesNotAbortSharedCycle(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
	f.provider.Live["A1"] = true
	gate := make(chan struct{})
	f.provider.ProbeGate = gate
	f.provider.ProbeEntered = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.manager.GetValidAccessToken(ctx)
		firstErr <- err
	}()
	<-f.provider.ProbeEntered

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	require.Equal(t, 0, f.provider.RefreshCount())

	close(gate)
	token, err := f.manager.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A1", token)
	require.Equal(t, 0, f.provider.RefreshCount())
}

func TestGetValidAccessToken_TimedOutProbeDoesNotRefresh(t *testing.T) {
	f := setupTestFixture(t)
	manager := credentials.NewManager(f.store, f.provider, passphrase, credentials.WithTimeout(20*time.Millisecond))
	require.NoError(t, f.store.Persist(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, passphrase))
	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	f.provider.ProbeGate = gate

	_, err := manager.GetValidAccessToken(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, f.provider.RefreshCount())

	stored, err := f.store.Load(passphrase)
	require.NoError(t, err)
	require.Equal(t, tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}, stored)
}

func TestRefresh_EmptyToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Refresh(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, 0, f.provider.RefreshCount())
}

func TestSave(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.manager.HasCredentials())

	err := f.manager.Save(tokenstore.Pair{AccessToken: "A1"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.False(t, f.manager.HasCredentials())

	require.NoError(t, f.manager.Save(tokenstore.Pair{AccessToken: "A1", RefreshToken: "R1"}))
	require.True(t, f.manager.HasCredentials())
}
