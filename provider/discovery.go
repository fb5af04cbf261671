package provider

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Discover replaces the configured endpoints with those published by an OpenID issuer.
// The userinfo endpoint becomes the probe unless a probe URL was configured explicitly.
func (c *Client) Discover(ctx context.Context, issuer string) error {
	p, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), issuer)
	if err != nil {
		return fmt.Errorf("[Provider Discover] %w: failed to discover %s: %v", apperrors.ErrConfig, issuer, err)
	}

	var claims struct {
		UserInfoURL string `json:"userinfo_endpoint"`
	}
	if err := p.Claims(&claims); err != nil {
		return fmt.Errorf("[Provider Discover] %w: failed to read discovery document: %v", apperrors.ErrConfig, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	endpoint := p.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInHeader
	c.oauth.Endpoint = endpoint
	if c.probeURL == "" {
		c.probeURL = claims.UserInfoURL
	}

	log.Info().
		Str("issuer", issuer).
		Str("authorize_url", endpoint.AuthURL).
		Str("token_url", endpoint.TokenURL).
		Str("probe_url", c.probeURL).
		Msg("OIDC discovery complete")
	return nil
}

// Endpoint returns the endpoints currently in use.
func (c *Client) Endpoint() oauth2.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.oauth.Endpoint
}
