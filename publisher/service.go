package publisher

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Post sources.
const (
	SourceSchedule = "schedule"
	SourceWebhook  = "webhook"
	SourceManual   = "manual"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Creator interface {
	Create(ctx context.Context, accessToken, text string) (Post, error)
}

// TokenSource hands out a live access token. *credentials.Manager implements it.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// Result is a published post together with the text that was sent.
type Result struct {
	Text string `json:"text"`
	Post Post   `json:"post"`
}

// Service generates and publishes posts. Upstream calls that fail transiently are retried.
type Service struct {
	generator Generator
	creator   Creator
	tokens    TokenSource

	attempts        int
	initialInterval time.Duration
}

type ServiceOption func(*Service)

// WithAttempts bounds how many times each upstream call is tried.
func WithAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithInitialInterval sets the first retry delay.
func WithInitialInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.initialInterval = d
	}
}

func NewService(generator Generator, creator Creator, tokens TokenSource, opts ...ServiceOption) *Service {
	s := &Service{
		generator:       generator,
		creator:         creator,
		tokens:          tokens,
		attempts:        3,
		initialInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAndPost turns prompt into text and publishes it.
func (s *Service) GenerateAndPost(ctx context.Context, source, prompt string) (Result, error) {
	var text string
	err := s.retry(ctx, "generate", retryable, func() error {
		var err error
		text, err = s.generator.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		metrics.Posts.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		return Result{}, err
	}

	post, err := s.PostText(ctx, source, text)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Post: post}, nil
}

// PostText publishes text as-is.
func (s *Service) PostText(ctx context.Context, source, text string) (post Post, err error) {
	defer func() {
		metrics.Posts.WithLabelValues(source, metrics.Outcome(err)).Inc()
	}()

	token, err := s.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return Post{}, err
	}

	err = s.retry(ctx, "post", createRetryable, func() error {
		var err error
		post, err = s.creator.Create(ctx, token, text)
		return err
	})
	if err != nil {
		return Post{}, err
	}

	log.Info().Str("source", source).Str("post_id", post.ID).Msg("Post published")
	return post, nil
}

// Publish matches schedule.PublishFunc.
func (s *Service) Publish(ctx context.Context, instruction string) error {
	_, err := s.GenerateAndPost(ctx, SourceSchedule, instruction)
	return err
}

func (s *Service) retry(ctx context.Context, op string, shouldRetry func(error) bool, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.initialInterval
	exp.Multiplier = 2
	exp.MaxInterval = 10 * s.initialInterval
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.attempts-1)), ctx)
	return backoff.RetryNotify(
		func() error {
			err := fn()
			if err != nil && !shouldRetry(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("op", op).Dur("wait", wait).Msg("Upstream call failed, retrying")
		},
	)
}

// retryable reports whether err is worth another attempt: transport failures,
// rate limiting and server errors.
func retryable(err error) bool {
	var pe *apperrors.ProviderError
	if apperrors.As(err, &pe) && pe.StatusCode != 0 {
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode >= 500
	}
	return apperrors.Is(err, apperrors.ErrUpstream)
}

// createRetryable is stricter than retryable because creating a post is not idempotent.
// Only answers that say nothing was created, and connections that were never made, are retried.
// A timeout after the request went out may already have produced a post.
func createRetryable(err error) bool {
	var pe *apperrors.ProviderError
	if apperrors.As(err, &pe) && pe.StatusCode != 0 {
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode == http.StatusServiceUnavailable
	}
	var opErr *net.OpError
	return apperrors.As(err, &opErr) && opErr.Op == "dial"
}
