package llm

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
)

// New returns a Client for cfg.Provider (openai, anthropic, gemini or mock). With no
// provider named it picks the first one whose API key is set, and falls back to
// MockClient when none is.
func New(ctx context.Context, cfg Config, logger *log.Logger) (Client, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	prov := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if prov == "" {
		switch {
		case cfg.OpenAIKey != "":
			prov = "openai"
		case cfg.AnthropicKey != "":
			prov = "anthropic"
		case cfg.GoogleKey != "":
			prov = "gemini"
		default:
			prov = "mock"
		}
	}
	hc := &http.Client{Timeout: cfg.timeout()}

	var c Client
	switch prov {
	case "openai":
		if cfg.OpenAIKey == "" {
			return fallback(logger, prov), nil
		}
		c = &OpenAIClient{APIKey: cfg.OpenAIKey, Model: cfg.model(defaultOpenAIModel), BaseURL: cfg.OpenAIBase, Temperature: cfg.Temperature, HTTP: hc}
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return fallback(logger, prov), nil
		}
		c = &AnthropicClient{APIKey: cfg.AnthropicKey, Model: cfg.model(defaultAnthropicModel), URL: cfg.AnthropicURL, HTTP: hc}
	case "gemini":
		if cfg.GoogleKey == "" {
			return fallback(logger, prov), nil
		}
		if cfg.GeminiURL != "" {
			c = &GeminiHTTPClient{APIKey: cfg.GoogleKey, Model: cfg.model(defaultGeminiModel), BaseURL: cfg.GeminiURL, Temperature: cfg.Temperature, HTTP: hc}
			break
		}
		g, err := NewGeminiClient(ctx, cfg.GoogleKey, cfg.model(defaultGeminiModel), cfg.Temperature)
		if err != nil {
			return nil, err
		}
		c = g
	case "mock":
		c = &MockClient{}
	default:
		logger.Printf("unknown LLM provider %q, using mock", cfg.Provider)
		c = &MockClient{}
	}
	logger.Printf("llm provider: %s", prov)
	if cfg.Debug {
		c = &debugClient{next: c, logger: logger}
	}
	return c, nil
}

func fallback(logger *log.Logger, prov string) Client {
	logger.Printf("LLM provider %s has no API key, using mock", prov)
	return &MockClient{}
}

// Close releases provider resources when the client holds any.
func Close(c Client) error {
	if d, ok := c.(*debugClient); ok {
		c = d.next
	}
	if cl, ok := c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

type debugClient struct {
	next   Client
	logger *log.Logger
}

func (d *debugClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	txt, err := d.next.GenerateText(ctx, prompt)
	if err != nil {
		d.logger.Printf("generate error: %v", err)
		return "", err
	}
	d.logger.Printf("generate raw=%.200q", txt)
	return txt, nil
}
