package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

const internalServerError = "Internal Server Error"

// Response is the JSON envelope every API route answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// StatusFor maps an error to its HTTP status and a short message.
// Unclassified errors are reported as a bare 500.
func StatusFor(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case apperrors.Is(err, apperrors.ErrAuthorization):
		return http.StatusBadRequest, "Authorization failed"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case apperrors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "Upstream request failed"
	case apperrors.Is(err, apperrors.ErrTokenExchange):
		return http.StatusInternalServerError, "Token exchange failed"
	case apperrors.Is(err, apperrors.ErrRefreshFailed):
		return http.StatusInternalServerError, "Token refresh failed"
	case apperrors.Is(err, apperrors.ErrDecryption):
		return http.StatusInternalServerError, "Stored credentials could not be decrypted"
	case apperrors.Is(err, apperrors.ErrConfig):
		return http.StatusInternalServerError, "Invalid configuration"
	default:
		return http.StatusInternalServerError, internalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// writeError answers with the failure envelope. Details of unclassified errors stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	detail := err.Error()
	if message == internalServerError {
		detail = internalServerError
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")

	writeJSON(w, status, Response{Success: false, Message: message, Error: detail})
}

// decodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read body: %v", apperrors.ErrValidation, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is empty", apperrors.ErrValidation)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrValidation, err)
	}
	return nil
}
