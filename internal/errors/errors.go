package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by every component. Handlers map them to HTTP status codes.
var (
	// Request errors
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("authorization failed")
	ErrUnauthorized  = errors.New("unauthorized")

	// Storage errors
	ErrNotFound           = errors.New("not found")
	ErrCredentialsMissing = fmt.Errorf("credentials missing: %w", ErrNotFound)
	ErrDecryption         = errors.New("decryption failed")
	ErrConfig             = errors.New("invalid configuration")

	// Provider errors
	ErrTokenExchange = errors.New("token exchange failed")
	ErrRefreshFailed = errors.New("token refresh failed")
	ErrUpstream      = errors.New("upstream request failed")
)

// ProviderError describes a rejection returned by a remote API.
// Kind is one of the sentinel errors above; Body holds the raw payload the remote returned.
type ProviderError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
