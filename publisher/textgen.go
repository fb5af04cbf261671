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

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Tweet string `json:"tweet"`
}

// TextGenerator calls the external text-generation service.
type TextGenerator struct {
	client    *resty.Client
	maxLength int
}

func NewTextGenerator(baseURL, apiKey string, maxLength int, timeout time.Duration) *TextGenerator {
	return &TextGenerator{
		client:    newRestClient(baseURL, timeout).SetHeader("api-key", apiKey),
		maxLength: maxLength,
	}
}

// Generate returns text for prompt, cut to the configured maximum length in runes.
func (g *TextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("[TextGenerator] %w: prompt is empty", apperrors.ErrValidation)
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(&generateRequest{Prompt: prompt}).
		Post("/tweet-generator")
	if err := checkResponse("TextGenerator", resp, err); err != nil {
		return "", err
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("[TextGenerator] %w: decode response: %v", apperrors.ErrUpstream, err)
	}
	text := strings.TrimSpace(out.Tweet)
	if text == "" {
		return "", fmt.Errorf("[TextGenerator] %w: empty text returned", apperrors.ErrUpstream)
	}
	return utils.Truncate(text, g.maxLength), nil
}
