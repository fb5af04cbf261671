package publisher_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/publisher"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) GetValidAccessToken(context.Context) (string, error) {
	return s.token, s.err
}

type fakeAPI struct {
	*httptest.Server
	generateCalls atomic.Int32
	postCalls     atomic.Int32
	generateFails int32
	postStatus    int
	postBody      string
	postDelay     time.Duration
	lastPostText  atomic.Value
	lastAuth      atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{postStatus: http.StatusCreated}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tweet-generator", func(w http.ResponseWriter, r *http.Request) {
		n := f.generateCalls.Add(1)
		if r.Header.Get("api-key") != "content-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if n <= f.generateFails {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]string{"tweet": "Generated: " + req.Prompt + " " + strings.Repeat("x", 300)})
	})
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		f.postCalls.Add(1)
		time.Sleep(f.postDelay)
		f.lastAuth.Store(r.Header.Get("Authorization"))
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.lastPostText.Store(req.Text)
		w.WriteHeader(f.postStatus)
		if f.postBody != "" {
			_, _ = w.Write([]byte(f.postBody))
			return
		}
		if f.postStatus < 300 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"id": "1234", "text": req.Text}})
			return
		}
		_, _ = w.Write([]byte(`{"title":"Forbidden","detail":"duplicate content"}`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newService(api *fakeAPI, tokens publisher.TokenSource) *publisher.Service {
	return publisher.NewService(
		publisher.NewTextGenerator(api.URL, "content-key", 270, 5*time.Second),
		publisher.NewPostClient(api.URL, 5*time.Second),
		tokens,
		publisher.WithAttempts(3),
		publisher.WithInitialInterval(time.Millisecond),
	)
}

func TestGenerateAndPost(t *testing.T) {
	api := newFakeAPI(t)
	svc := newService(api, staticTokens{token: "A1"})

	res, err := svc.GenerateAndPost(context.Background(), publisher.SourceManual, "Say hi")
	require.NoError(t, err)
	require.Equal(t, "1234", res.Post.ID)
	require.Len(t, []rune(res.Text), 270)
	require.True(t, strings.HasPrefix(res.Text, "Generated: Say hi"))
	require.Equal(t, res.Text, api.lastPostText.Load())
	require.Equal(t, "Bearer A1", api.lastAuth.Load())
}

func TestGenerateAndPost_RetriesServerErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.generateFails = 2
	svc := newService(api, staticTokens{token: "A1"})

	_, err := svc.GenerateAndPost(context.Background(), publisher.SourceSchedule, "Say hi")
	require.NoError(t, err)
	require.Equal(t, int32(3), api.generateCalls.Load())
}

func TestGenerateAndPost_GivesUpAfterAttempts(t *testing.T) {
	api := newFakeAPI(t)
	api.generateFails = 10
	svc := newService(api, staticTokens{token: "A1"})

	_, err := svc.GenerateAndPost(context.Background(), publisher.SourceSchedule, "Say hi")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, int32(3), api.generateCalls.Load())
	require.Equal(t, int32(0), api.postCalls.Load())
}

func TestPostText_ClientErrorsAreNotRetried(t *testing.T) {
	api := newFakeAPI(t)
	api.postStatus = http.StatusForbidden
	svc := newService(api, staticTokens{token: "A1"})

	_, err := svc.PostText(context.Background(), publisher.SourceWebhook, "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstream)

	var pe *apperrors.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, http.StatusForbidden, pe.StatusCode)
	require.Contains(t, pe.Body, "duplicate content")
	require.Equal(t, int32(1), api.postCalls.Load())
}

func TestPostText_CreateIsNotResentAfterRequestWentOut(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		delay   time.Duration
		timeout time.Duration
	}{
		{name: "undecodable success body", body: "<html>created</html>", timeout: 5 * time.Second},
		{name: "client timeout", delay: 200 * time.Millisecond, timeout: 50 * time.Millisecond},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.postBody = tc.body
			api.postDelay = tc.delay
			svc := publisher.NewService(
				publisher.NewTextGenerator(api.URL, "content-key", 270, 5*time.Second),
				publisher.NewPostClient(api.URL, tc.timeout),
				staticTokens{token: "A1"},
				publisher.WithAttempts(3),
				publisher.WithInitialInterval(time.Millisecond),
			)

			_, err := svc.PostText(context.Background(), publisher.SourceWebhook, "hello")
			require.ErrorIs(t, err, apperrors.ErrUpstream)
			require.Equal(t, int32(1), api.postCalls.Load(), "one publish must create at most one post")
		})
	}
}

func TestPostText_RetriesServiceUnavailable(t *testing.T) {
	api := newFakeAPI(t)
	api.postStatus = http.StatusServiceUnavailable
	svc := newService(api, staticTokens{token: "A1"})

	_, err := svc.PostText(context.Background(), publisher.SourceWebhook, "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, int32(3), api.postCalls.Load())
}

type countingCreator struct {
	calls atomic.Int32
	err   error
}

func (c *countingCreator) Create(context.Context, string, string) (publisher.Post, error) {
	c.calls.Add(1)
	return publisher.Post{}, c.err
}

func TestPostText_RetriesFailedDial(t *testing.T) {
	creator := &countingCreator{
		err: fmt.Errorf("[PostClient] %w: %w", apperrors.ErrUpstream, &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("connection refused")}),
	}
	svc := publisher.NewService(nil, creator, staticTokens{token: "A1"},
		publisher.WithAttempts(3),
		publisher.WithInitialInterval(time.Millisecond),
	)

	_, err := svc.PostText(context.Background(), publisher.SourceWebhook, "hello")
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	require.Equal(t, int32(3), creator.calls.Load())
}

func TestPostText_MissingCredentials(t *testing.T) {
	api := newFakeAPI(t)
	svc := newService(api, staticTokens{err: apperrors.ErrCredentialsMissing})

	_, err := svc.PostText(context.Background(), publisher.SourceWebhook, "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, int32(0), api.postCalls.Load())
}

func TestTextGenerator_EmptyPrompt(t *testing.T) {
	gen := publisher.NewTextGenerator("http://127.0.0.1:1", "k", 270, time.Second)
	_, err := gen.Generate(context.Background(), "  ")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
