package config

import "strings"

type ContentConfig interface {
	GetContentAPIURL() string
	GetContentAPIKey() string
	GetMaxPostLength() int
}

// Content configures the text-generation and webhook subscription API.
type Content struct {
	ContentAPIURL string `envconfig:"CHAINGPT_API_URL" default:"https://webapi.chaingpt.org"`
	ContentAPIKey string `envconfig:"CHAINGPT_API_KEY" required:"true"`
	MaxPostLength int    `envconfig:"MAX_POST_LENGTH" default:"270"`
}

var _ ContentConfig = Content{}

func (c Content) GetContentAPIURL() string {
	return strings.TrimRight(c.ContentAPIURL, "/")
}

func (c Content) GetContentAPIKey() string {
	return c.ContentAPIKey
}

func (c Content) GetMaxPostLength() int {
	if c.MaxPostLength <= 0 {
		return 270
	}
	return c.MaxPostLength
}
