// Package genai is a minimal client for a Gemini-style generateContent API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("genai: api key not configured")

type Client struct {
	client *resty.Client
	apiKey string
	model  string
}

type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.SetTimeout(d) }
}

func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	c := &Client{client: rc, apiKey: apiKey, model: model}
	for _, o := range opts {
		o(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateResponse sends prompt as a single user turn and returns the text
// of the first candidate.
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("genai: empty prompt")
	}

	body := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetPathParam("model", c.model).
		SetBody(&body).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("genai request: %w", err)
	}

	var gr generateResponse
	decodeErr := json.Unmarshal(resp.Body(), &gr)
	if resp.StatusCode() != http.StatusOK {
		if decodeErr == nil && gr.Error != nil && gr.Error.Message != "" {
			return "", fmt.Errorf("genai status %d: %s", resp.StatusCode(), gr.Error.Message)
		}
		return "", fmt.Errorf("genai status %d", resp.StatusCode())
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("genai: no candidates")
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("genai: empty response")
	}
	return sb.String(), nil
}
