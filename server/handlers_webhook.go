package server

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
	"github.com/jrsteele09/go-publish-agent/publisher"
)

type webhookRequest struct {
	Tweet string `json:"tweet"`
}

type registerWebhookRequest struct {
	URL string `json:"url"`
}

type subscribeRequest struct {
	CategoryIDs []int `json:"categoryIds"`
}

// WebhookHandler publishes the text pushed by the content API.
func (s *Server) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req webhookRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		text := strings.TrimSpace(req.Tweet)
		if text == "" {
			writeError(w, r, fmt.Errorf("%w: tweet is required", apperrors.ErrValidation))
			return
		}

		post, err := s.poster.PostText(r.Context(), publisher.SourceWebhook, utils.Truncate(text, s.config.GetMaxPostLength()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Post published", post)
	}
}

func (s *Server) RegisterWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerWebhookRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := s.content.RegisterWebhook(r.Context(), strings.TrimSpace(req.URL))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Webhook registered", out)
	}
}

func (s *Server) SubscribeCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscribeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := s.content.Subscribe(r.Context(), req.CategoryIDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Subscription updated", out)
	}
}
