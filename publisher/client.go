// Package publisher generates post text and publishes it with the stored credentials.
package publisher

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

func newRestClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
}

// checkResponse turns a transport failure or a non-2xx answer into an ErrUpstream.
func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("[%s] %w: %w", op, apperrors.ErrUpstream, err)
	}
	if resp.IsError() {
		return &apperrors.ProviderError{
			Kind:       apperrors.ErrUpstream,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
			Err:        fmt.Errorf("%s returned %s", op, http.StatusText(resp.StatusCode())),
		}
	}
	return nil
}
