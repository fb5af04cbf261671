package config

import (
	"strings"
	"time"
)

type ProviderConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetProbeURL() string
	GetIssuerURL() string
	GetScopes() []string
	GetPostAPIURL() string
	GetPKCESessionTTL() time.Duration
}

type OAuth struct {
	ClientID     string `envconfig:"TWITTER_CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"TWITTER_CLIENT_SECRET" required:"true"`
	AuthorizeURL string `envconfig:"OAUTH_AUTHORIZE_URL" default:"https://twitter.com/i/oauth2/authorize"`
	TokenURL     string `envconfig:"OAUTH_TOKEN_URL" default:"https://api.twitter.com/2/oauth2/token"`
	ProbeURL     string `envconfig:"OAUTH_PROBE_URL" default:"https://api.twitter.com/2/users/me"`
	IssuerURL    string `envconfig:"OAUTH_ISSUER_URL"`
	Scopes       string `envconfig:"OAUTH_SCOPES" default:"tweet.read users.read tweet.write offline.access"`
	PostAPIURL   string `envconfig:"POST_API_URL" default:"https://api.twitter.com"`
}

var _ ProviderConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetAuthorizeURL() string {
	return o.AuthorizeURL
}

func (o OAuth) GetTokenURL() string {
	return o.TokenURL
}

// GetProbeURL is the endpoint hit with the access token to decide whether it is still live.
// Empty means "use the userinfo endpoint from issuer discovery".
func (o OAuth) GetProbeURL() string {
	return o.ProbeURL
}

func (o OAuth) GetIssuerURL() string {
	return o.IssuerURL
}

func (o OAuth) GetScopes() []string {
	return strings.Fields(o.Scopes)
}

func (o OAuth) GetPostAPIURL() string {
	return strings.TrimRight(o.PostAPIURL, "/")
}

func (OAuth) GetPKCESessionTTL() time.Duration {
	return 5 * time.Minute
}
