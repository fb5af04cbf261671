package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const minEncryptionKeyLength = 32

type Config interface {
	EnvConfig
	ProviderConfig
	SecurityConfig
	ContentConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetScheduleFile() string
	GetTokensFile() string
	GetEnv() string
	IsDev() bool
	GetHTTPTimeout() time.Duration
	GetJobTimeout() time.Duration
	GetPublishAttempts() int
	GetWatchSchedule() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// Settings is the concrete configuration, populated from the environment by New.
// Tests build it directly.
type Settings struct {
	EnvVars
	OAuth
	Security
	Content
	Cors
}

var _ Config = Settings{}

// New reads the environment and validates the result.
func New() (Config, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfig, "failed to process environment variables: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("env", s.GetEnv()).
		Str("port", s.GetPort()).
		Str("data_folder", s.GetDataFolder()).
		Str("authorize_url", s.GetAuthorizeURL()).
		Str("token_url", s.GetTokenURL()).
		Str("issuer_url", s.GetIssuerURL()).
		Str("content_api_url", s.GetContentAPIURL()).
		Bool("fixed_iv", s.UseFixedIV()).
		Bool("watch_schedule", s.GetWatchSchedule()).
		Dur("http_timeout", s.GetHTTPTimeout()).
		Msg("Configuration loaded")

	if s.UseFixedIV() {
		log.Warn().Msg("ENCRYPTION_FIXED_IV is enabled: every credential is encrypted under the same key and IV")
	}

	return s, nil
}

// NewEnvVars reads only the process settings. CLI inspection commands use it so they
// work without provider or encryption secrets.
func NewEnvVars() (EnvVars, error) {
	var e EnvVars
	if err := envconfig.Process("", &e); err != nil {
		return EnvVars{}, apperrors.Wrapf(apperrors.ErrConfig, "failed to process environment variables: %v", err)
	}
	return e, nil
}

// Validate checks values envconfig can not check on its own.
func (s Settings) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", apperrors.ErrConfig, fmt.Sprintf(format, args...))
	}

	if s.ClientID == "" || s.ClientSecret == "" {
		return invalid("TWITTER_CLIENT_ID and TWITTER_CLIENT_SECRET are required")
	}
	if len(s.EncryptionKey) < minEncryptionKeyLength {
		return invalid("ENCRYPTION_KEY should be at least %d characters long", minEncryptionKeyLength)
	}
	if salt, err := hex.DecodeString(s.EncryptionSalt); err != nil || len(salt) == 0 {
		return invalid("ENCRYPTION_SALT must be a non-empty hex string")
	}
	if s.EncryptionIV != "" {
		if _, err := hex.DecodeString(s.EncryptionIV); err != nil {
			return invalid("ENCRYPTION_IV must be a hex string")
		}
	}
	if s.FixedIV && s.EncryptionIV == "" {
		return invalid("ENCRYPTION_IV is required when ENCRYPTION_FIXED_IV is set")
	}
	if s.PasswordAuth == "" {
		return invalid("PASSWORD_AUTH is required")
	}
	if s.ContentAPIKey == "" {
		return invalid("CHAINGPT_API_KEY is required")
	}
	if s.MaxPostLength <= 0 {
		return invalid("MAX_POST_LENGTH must be positive")
	}
	for name, raw := range map[string]string{
		"OAUTH_AUTHORIZE_URL": s.AuthorizeURL,
		"OAUTH_TOKEN_URL":     s.TokenURL,
		"OAUTH_PROBE_URL":     s.ProbeURL,
		"POST_API_URL":        s.PostAPIURL,
		"CHAINGPT_API_URL":    s.ContentAPIURL,
	} {
		if raw == "" && name != "OAUTH_PROBE_URL" {
			return invalid("%s is required", name)
		}
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("%s is not an absolute URL: %q", name, raw)
		}
	}
	if s.ProbeURL == "" && s.IssuerURL == "" {
		return invalid("one of OAUTH_PROBE_URL or OAUTH_ISSUER_URL is required")
	}
	if s.HTTPTimeout <= 0 {
		return invalid("HTTP_TIMEOUT must be positive")
	}
	return nil
}
