package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

// RequireSecret gates a route on "Authorization: <scheme> <PASSWORD_AUTH>".
// The scheme is not checked.
func (s *Server) RequireSecret() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !s.secretMatches(parts[1]) {
				writeError(w, r, fmt.Errorf("%w: missing or invalid authorization secret", apperrors.ErrUnauthorized))
				return
			}
			next(w, r)
		}
	}
}

func (s *Server) secretMatches(candidate string) bool {
	expected := s.config.GetPasswordAuth()
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}
