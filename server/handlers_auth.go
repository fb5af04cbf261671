package server

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/jrsteele09/go-publish-agent/authflow"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/rs/zerolog/log"
)

type saveTokensRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Password     string `json:"password"`
}

type tokenConfirmPage struct {
	pageData
	AccessToken  string
	RefreshToken string
}

// LoginHandler starts the PKCE flow and redirects the browser to the provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := s.login.Initiate(authflow.RedirectURI(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		setPKCESessionCookie(w, r, start.SessionCookie, start.ExpiresAt)
		http.Redirect(w, r, start.AuthURL, http.StatusFound)
	}
}

// CallbackHandler exchanges the authorization code and renders the confirmation form.
// Nothing is persisted until the operator confirms.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := authflow.CallbackParams{
			Code:             q.Get("code"),
			State:            q.Get("state"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}

		pair, err := s.login.Complete(r.Context(), params, pkceSession(r), authflow.RedirectURI(r))
		clearPKCESessionCookie(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		s.render(w, http.StatusOK, "token_confirm.html", tokenConfirmPage{
			pageData:     s.pageData("Confirm credentials"),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

// SaveTokensHandler persists a confirmed pair. The body carries the operator password.
func (s *Server) SaveTokensHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readSaveTokensRequest(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !s.secretMatches(req.Password) {
			writeError(w, r, fmt.Errorf("%w: invalid password", apperrors.ErrUnauthorized))
			return
		}

		if err := s.credentials.Save(tokenstore.Pair{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}); err != nil {
			writeError(w, r, err)
			return
		}
		log.Info().Msg("Credentials saved")
		writeSuccess(w, "Tokens saved", nil)
	}
}

// readSaveTokensRequest accepts the confirmation form as JSON or as a posted HTML form.
func readSaveTokensRequest(r *http.Request) (saveTokensRequest, error) {
	var req saveTokensRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("%w: malformed form: %v", apperrors.ErrValidation, err)
		}
		req.AccessToken = r.PostForm.Get("accessToken")
		req.RefreshToken = r.PostForm.Get("refreshToken")
		req.Password = r.PostForm.Get("password")
		return req, nil
	}
	err := decodeJSON(r, &req)
	return req, err
}

// TokenStatusHandler reports whether a credential record exists.
func (s *Server) TokenStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, "", map[string]bool{"hasCredentials": s.credentials.HasCredentials()})
	}
}
