package authflow

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Session is the PKCE material bound to the browser between Initiate and Complete.
type Session struct {
	CodeVerifier string
	State        string
	ExpiresAt    time.Time
}

type sessionClaims struct {
	CodeVerifier string `json:"cv"`
	State        string `json:"st"`
	jwt.RegisteredClaims
}

// SessionCodec signs sessions into compact HS256 tokens suitable for a cookie value.
type SessionCodec struct {
	key []byte
	ttl time.Duration
}

func NewSessionCodec(key []byte, ttl time.Duration) *SessionCodec {
	return &SessionCodec{key: key, ttl: ttl}
}

func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs s with an expiry of now+ttl and returns the token and that expiry.
func (c *SessionCodec) Encode(s Session) (string, time.Time, error) {
	now := NowTimeFunc()
	exp := now.Add(c.ttl)
	claims := sessionClaims{
		CodeVerifier: s.CodeVerifier,
		State:        s.State,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, exp, nil
}

// Decode verifies the signature and expiry. Every failure is an ErrAuthorization.
func (c *SessionCodec) Decode(token string) (Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: invalid login session: %v", apperrors.ErrAuthorization, err)
	}
	if claims.CodeVerifier == "" || claims.State == "" {
		return Session{}, fmt.Errorf("%w: login session is incomplete", apperrors.ErrAuthorization)
	}
	return Session{
		CodeVerifier: claims.CodeVerifier,
		State:        claims.State,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}
