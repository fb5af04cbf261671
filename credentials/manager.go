// Package credentials owns the single stored credential pair and keeps its access token live.
package credentials

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/metrics"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	accessTokenKey = "access-token"

	// DefaultTimeout bounds one shared probe/refresh cycle.
	DefaultTimeout = 30 * time.Second
)

// Manager hands out a live access token, refreshing and persisting the pair when the probe fails.
type Manager struct {
	store      Store
	provider   Provider
	passphrase string
	timeout    time.Duration

	group singleflight.Group
}

type ManagerOption func(*Manager)

// WithTimeout bounds one shared probe/refresh cycle.
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewManager(store Store, provider Provider, passphrase string, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		provider:   provider,
		passphrase: passphrase,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetValidAccessToken returns the stored access token if the provider accepts it, and otherwise
// refreshes, persists and returns the new one. Concurrent callers share one probe/refresh cycle,
// which runs detached from any single caller's cancellation.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	ch := m.group.DoChan(accessTokenKey, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.getValidAccessToken(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("[Manager GetValidAccessToken] %w", ctx.Err())
	}
}

func (m *Manager) getValidAccessToken(ctx context.Context) (string, error) {
	pair, err := m.store.Load(m.passphrase)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("[Manager GetValidAccessToken] %w: %v", apperrors.ErrCredentialsMissing, err)
		}
		return "", fmt.Errorf("[Manager GetValidAccessToken] failed to load credentials: %w", err)
	}

	probeErr := m.provider.Probe(ctx, pair.AccessToken)
	if probeErr == nil {
		return pair.AccessToken, nil
	}
	if ctx.Err() != nil {
		// The probe was cut short, which says nothing about the token.
		return "", fmt.Errorf("[Manager GetValidAccessToken] probe aborted: %w", ctx.Err())
	}
	log.Info().Err(probeErr).Msg("Access token rejected by provider, refreshing")

	refreshed, err := m.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := m.store.Persist(refreshed, m.passphrase); err != nil {
		return "", fmt.Errorf("[Manager GetValidAccessToken] failed to persist refreshed credentials: %w", err)
	}

	log.Info().Msg("Credentials refreshed and persisted")
	return refreshed.AccessToken, nil
}

// Refresh redeems refreshToken and returns the new pair without persisting it.
// The old refresh token is kept when the provider does not issue a new one.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (tokenstore.Pair, error) {
	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeFailure).Inc()
		return tokenstore.Pair{}, fmt.Errorf("[Manager Refresh] %w: no refresh token stored", apperrors.ErrRefreshFailed)
	}

	pair, err := m.provider.Refresh(ctx, refreshToken)
	metrics.TokenRefreshes.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRefreshFailed) {
			return tokenstore.Pair{}, fmt.Errorf("[Manager Refresh] %w", err)
		}
		return tokenstore.Pair{}, fmt.Errorf("[Manager Refresh] %w: %w", apperrors.ErrRefreshFailed, err)
	}
	if pair.AccessToken == "" {
		return tokenstore.Pair{}, fmt.Errorf("[Manager Refresh] %w: provider returned no access token", apperrors.ErrRefreshFailed)
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// Save persists an operator-confirmed pair.
func (m *Manager) Save(pair tokenstore.Pair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("[Manager Save] %w: access token and refresh token are required", apperrors.ErrValidation)
	}
	if err := m.store.Persist(pair, m.passphrase); err != nil {
		return fmt.Errorf("[Manager Save] failed to persist credentials: %w", err)
	}
	return nil
}

func (m *Manager) HasCredentials() bool {
	return m.store.Exists()
}
