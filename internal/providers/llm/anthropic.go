package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type AnthropicClient struct {
	APIKey string
	Model  string
	URL    string
	HTTP   *http.Client
}

func (c *AnthropicClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": 1024,
		"messages": []map[string]any{{
			"role":    "user",
			"content": []map[string]string{{"type": "text", "text": prompt}},
		}},
	}
	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         c.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := postJSON(ctx, c.client(), "anthropic", c.endpoint(), headers, body, &resp); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, part := range resp.Content {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: no content")
	}
	return sb.String(), nil
}

func (c *AnthropicClient) endpoint() string {
	if c.URL != "" {
		return c.URL
	}
	return "https://api.anthropic.com/v1/messages"
}

func (c *AnthropicClient) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}
