package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/internal/utils"
)

// Post is the created post as echoed by the platform.
type Post struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type createPostRequest struct {
	Text string `json:"text"`
}

type createPostResponse struct {
	Data Post `json:"data"`
}

// PostClient creates posts with a bearer access token.
type PostClient struct {
	client *resty.Client
}

func NewPostClient(baseURL string, timeout time.Duration) *PostClient {
	return &PostClient{client: newRestClient(baseURL, timeout)}
}

func (p *PostClient) Create(ctx context.Context, accessToken, text string) (Post, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(&createPostRequest{Text: text}).
		Post("/2/tweets")
	if err := checkResponse("PostClient", resp, err); err != nil {
		return Post{}, err
	}

	// The post exists once a 2xx came back, so an unreadable body keeps its status code
	// and is never treated as a failure worth re-sending.
	var out createPostResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Post{}, &apperrors.ProviderError{
			Kind:       apperrors.ErrUpstream,
			StatusCode: resp.StatusCode(),
			Body:       utils.Truncate(strings.TrimSpace(resp.String()), 512),
			Err:        fmt.Errorf("PostClient failed to decode response: %w", err),
		}
	}
	return out.Data, nil
}
