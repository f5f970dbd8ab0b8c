package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/providers/llm"
)

// Request is the generation call payload, and the body of POST /api/generate.
type Request struct {
	Task     string          `json:"task"`
	Tone     models.Tone     `json:"tone"`
	Category models.Category `json:"category,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
}

// RequestFor builds the request for t in the given tone.
func RequestFor(t models.Task, tone models.Tone) Request {
	return Request{
		Task:     t.Text,
		Tone:     tone,
		Category: t.Category,
		Priority: t.Priority,
		Tags:     append([]string(nil), t.Tags...),
	}
}

// Generator produces one enrichment result for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (models.Enrichment, error)
}

// LLMGenerator prompts a model directly.
type LLMGenerator struct {
	Client llm.Client
}

func (g LLMGenerator) Generate(ctx context.Context, req Request) (models.Enrichment, error) {
	raw, err := g.Client.GenerateText(ctx, BuildPrompt(req))
	if err != nil {
		return models.Enrichment{}, fmt.Errorf("generate: %w", err)
	}
	return ParseEnrichment(raw)
}

// HTTPGenerator calls a remote generation service that speaks the /api/generate contract.
type HTTPGenerator struct {
	BaseURL string
	HTTP    *http.Client
}

const maxServiceBody = 1 << 20

func (g HTTPGenerator) Generate(ctx context.Context, req Request) (models.Enrichment, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return models.Enrichment{}, err
	}
	url := strings.TrimRight(g.BaseURL, "/") + "/api/generate"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return models.Enrichment{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hc := g.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 45 * time.Second}
	}
	res, err := hc.Do(hreq)
	if err != nil {
		return models.Enrichment{}, fmt.Errorf("generation service: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, maxServiceBody))
	if err != nil {
		return models.Enrichment{}, fmt.Errorf("generation service: read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return models.Enrichment{}, fmt.Errorf("%w: %d %s", ErrServiceStatus, res.StatusCode, strings.TrimSpace(string(body)))
	}
	return ParseEnrichment(string(body))
}
