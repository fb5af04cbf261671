// Package provider talks to the OAuth2 authorization server that issues the posting credentials.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jrsteele09/go-publish-agent/credentials"
	"github.com/jrsteele09/go-publish-agent/internal/config"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"golang.org/x/oauth2"
)

var _ credentials.Provider = &Client{}

// Client wraps the oauth2 configuration for the provider plus the liveness probe endpoint.
type Client struct {
	httpClient *http.Client
	probe      *resty.Client

	mu       sync.RWMutex
	oauth    oauth2.Config
	probeURL string
}

func New(cfg config.ProviderConfig, timeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		httpClient: httpClient,
		probe:      resty.NewWithClient(httpClient).SetHeader("Accept", "application/json"),
		oauth: oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GetAuthorizeURL(),
				TokenURL:  cfg.GetTokenURL(),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: cfg.GetScopes(),
		},
		probeURL: cfg.GetProbeURL(),
	}
}

func (c *Client) config(redirectURI string) oauth2.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conf := c.oauth
	conf.Scopes = append([]string(nil), c.oauth.Scopes...)
	conf.RedirectURL = redirectURI
	return conf
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// AuthCodeURL builds the authorization request with an S256 PKCE challenge.
func (c *Client) AuthCodeURL(state, challenge, redirectURI string) string {
	conf := c.config(redirectURI)
	return conf.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange redeems an authorization code. Client credentials go in the Basic auth header.
func (c *Client) Exchange(ctx context.Context, code, verifier, redirectURI string) (tokenstore.Pair, error) {
	conf := c.config(redirectURI)
	tok, err := conf.Exchange(
		c.withHTTPClient(ctx),
		code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return tokenstore.Pair{}, providerError(apperrors.ErrTokenExchange, err)
	}
	return tokenstore.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// Refresh runs the refresh-token grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (tokenstore.Pair, error) {
	conf := c.config("")
	tok, err := conf.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return tokenstore.Pair{}, providerError(apperrors.ErrRefreshFailed, err)
	}
	return tokenstore.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// Probe calls the probe endpoint with the access token. Any non-2xx answer is an error.
func (c *Client) Probe(ctx context.Context, accessToken string) error {
	c.mu.RLock()
	probeURL := c.probeURL
	c.mu.RUnlock()

	if probeURL == "" {
		return fmt.Errorf("[Provider Probe] %w: no probe endpoint configured", apperrors.ErrConfig)
	}

	resp, err := c.probe.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(probeURL)
	if err != nil {
		return fmt.Errorf("[Provider Probe] %w: %w", apperrors.ErrUpstream, err)
	}
	if resp.IsError() {
		return &apperrors.ProviderError{
			Kind:       apperrors.ErrUpstream,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}
	return nil
}

func providerError(kind error, err error) error {
	var re *oauth2.RetrieveError
	if apperrors.As(err, &re) {
		pe := &apperrors.ProviderError{Kind: kind, Body: strings.TrimSpace(string(re.Body)), Err: err}
		if re.Response != nil {
			pe.StatusCode = re.Response.StatusCode
		}
		return pe
	}
	return &apperrors.ProviderError{Kind: kind, Err: err}
}
