// Package authflow runs the PKCE authorization-code flow that produces the initial credential pair.
package authflow

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-publish-agent/authflow/authflowrepo"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/rs/zerolog/log"
)

// Exchanger is the provider side of the flow. *provider.Client implements it.
type Exchanger interface {
	AuthCodeURL(state, challenge, redirectURI string) string
	Exchange(ctx context.Context, code, verifier, redirectURI string) (tokenstore.Pair, error)
}

// Initiation is what the login handler needs to redirect the browser.
type Initiation struct {
	AuthURL       string
	SessionCookie string
	ExpiresAt     time.Time
}

// CallbackParams are the query parameters the provider appends to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type Flow struct {
	provider Exchanger
	codec    *SessionCodec
	pending  authflowrepo.Repo
}

func NewFlow(provider Exchanger, codec *SessionCodec, pending authflowrepo.Repo) *Flow {
	return &Flow{
		provider: provider,
		codec:    codec,
		pending:  pending,
	}
}

// Initiate creates a verifier, challenge and state, records the state as pending and
// returns the authorization URL together with the signed session for the cookie.
func (f *Flow) Initiate(redirectURI string) (Initiation, error) {
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		return Initiation{}, err
	}
	state, err := GenerateState()
	if err != nil {
		return Initiation{}, err
	}

	cookie, exp, err := f.codec.Encode(Session{CodeVerifier: verifier, State: state})
	if err != nil {
		return Initiation{}, err
	}

	now := NowTimeFunc()
	f.pending.Prune(now)
	if err := f.pending.Upsert(&authflowrepo.PendingLogin{State: state, CreatedAt: now, ExpiresAt: exp}); err != nil {
		return Initiation{}, fmt.Errorf("failed to record pending login: %w", err)
	}

	return Initiation{
		AuthURL:       f.provider.AuthCodeURL(state, challenge, redirectURI),
		SessionCookie: cookie,
		ExpiresAt:     exp,
	}, nil
}

// Complete validates the callback against the session cookie and exchanges the code.
// The returned pair is not persisted.
func (f *Flow) Complete(ctx context.Context, params CallbackParams, sessionCookie, redirectURI string) (tokenstore.Pair, error) {
	if params.Error != "" {
		return tokenstore.Pair{}, fmt.Errorf("%w: provider returned %s: %s", apperrors.ErrAuthorization, params.Error, params.ErrorDescription)
	}
	if params.Code == "" || sessionCookie == "" {
		return tokenstore.Pair{}, fmt.Errorf("%w: missing code or verifier", apperrors.ErrAuthorization)
	}

	session, err := f.codec.Decode(sessionCookie)
	if err != nil {
		return tokenstore.Pair{}, err
	}
	if params.State == "" || params.State != session.State {
		return tokenstore.Pair{}, fmt.Errorf("%w: state does not match the login session", apperrors.ErrAuthorization)
	}
	if _, err := f.pending.Consume(session.State, NowTimeFunc()); err != nil {
		return tokenstore.Pair{}, fmt.Errorf("%w: login session already used or unknown: %v", apperrors.ErrAuthorization, err)
	}

	pair, err := f.provider.Exchange(ctx, params.Code, session.CodeVerifier, redirectURI)
	if err != nil {
		log.Error().Err(err).Msg("Authorization code exchange failed")
		return tokenstore.Pair{}, err
	}
	return pair, nil
}
