package server

import (
	"net/http"
	"time"
)

// pkceSessionCookie carries the signed verifier and state between login and callback.
const pkceSessionCookie = "pkce_session"

func setPKCESessionCookie(w http.ResponseWriter, r *http.Request, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     pkceSessionCookie,
		Value:    value,
		Path:     RouteLogin,
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
		Expires:  expiresAt,
	})
}

func clearPKCESessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     pkceSessionCookie,
		Value:    "",
		Path:     RouteLogin,
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func pkceSession(r *http.Request) string {
	c, err := r.Cookie(pkceSessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
