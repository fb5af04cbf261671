package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
)

// Category is a news category offered by the content API.
type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	IsSubscribed bool   `json:"isSubscribed"`
}

type categoriesResponse struct {
	AllCategories        []Category `json:"allCategories"`
	SubscribedCategories []struct {
		CategoryID int `json:"categoryId"`
	} `json:"subscribedCategories"`
}

type webhookResponse struct {
	WebhookURL string `json:"webhookUrl"`
}

// ContentClient manages the webhook and category subscriptions with the content API.
type ContentClient struct {
	client *resty.Client
}

func NewContentClient(baseURL, apiKey string, timeout time.Duration) *ContentClient {
	return &ContentClient{
		client: newRestClient(baseURL, timeout).SetHeader("api-key", apiKey),
	}
}

// ConnectedWebhook returns the registered webhook URL, or "" when none is registered.
func (c *ContentClient) ConnectedWebhook(ctx context.Context) (string, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/webhook-subscription/")
	if err := checkResponse("ContentClient ConnectedWebhook", resp, err); err != nil {
		return "", err
	}
	var out webhookResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("[ContentClient] %w: decode webhook: %v", apperrors.ErrUpstream, err)
	}
	return out.WebhookURL, nil
}

// RegisterWebhook points the content API at url and returns its raw answer.
func (c *ContentClient) RegisterWebhook(ctx context.Context, url string) (json.RawMessage, error) {
	if url == "" {
		return nil, fmt.Errorf("[ContentClient] %w: url is required", apperrors.ErrValidation)
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"url": url}).
		Post("/webhook-subscription/register")
	if err := checkResponse("ContentClient RegisterWebhook", resp, err); err != nil {
		return nil, err
	}
	return rawBody(resp.Body()), nil
}

// Categories returns every category with IsSubscribed set from the subscription list.
func (c *ContentClient) Categories(ctx context.Context) ([]Category, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/category-subscription")
	if err := checkResponse("ContentClient Categories", resp, err); err != nil {
		return nil, err
	}
	var out categoriesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("[ContentClient] %w: decode categories: %v", apperrors.ErrUpstream, err)
	}

	subscribed := make(map[int]bool, len(out.SubscribedCategories))
	for _, s := range out.SubscribedCategories {
		subscribed[s.CategoryID] = true
	}
	categories := make([]Category, 0, len(out.AllCategories))
	for _, cat := range out.AllCategories {
		cat.IsSubscribed = subscribed[cat.ID]
		categories = append(categories, cat)
	}
	return categories, nil
}

// Subscribe replaces the category subscription with ids.
func (c *ContentClient) Subscribe(ctx context.Context, ids []int) (json.RawMessage, error) {
	if ids == nil {
		return nil, fmt.Errorf("[ContentClient] %w: categoryIds must be an array", apperrors.ErrValidation)
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string][]int{"categoryIds": ids}).
		Post("/category-subscription/subscribe")
	if err := checkResponse("ContentClient Subscribe", resp, err); err != nil {
		return nil, err
	}
	return rawBody(resp.Body()), nil
}

func rawBody(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
