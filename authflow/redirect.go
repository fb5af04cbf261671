package authflow

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// CallbackPath is where the provider sends the browser back to.
const CallbackPath = "/api/login/callback"

// RedirectURI derives the callback URL from the request host. Local hosts use plain http,
// everything else honours X-Forwarded-Proto and defaults to https.
func RedirectURI(r *http.Request) string {
	host := r.Host
	scheme := "https"
	switch {
	case isLocalHost(host):
		scheme = "http"
	case r.Header.Get("X-Forwarded-Proto") != "":
		scheme = strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, CallbackPath)
}

func isLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.EqualFold(host, "localhost") || host == "127.0.0.1" || host == "::1"
}
