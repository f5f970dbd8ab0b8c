package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
)

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("auth header = %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) != 1 || body.Messages[0].Content != "hi" {
			t.Errorf("request body not replayed: %+v %v", body, err)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := &OpenAIClient{APIKey: "k", Model: "m", BaseURL: srv.URL + "/"}
	got, err := c.GenerateText(context.Background(), "hi")
	if err != nil || got != "hello" {
		t.Fatalf("GenerateText = %q, %v", got, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestOpenAIClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := &OpenAIClient{APIKey: "k", Model: "m", BaseURL: srv.URL}
	_, err := c.GenerateText(context.Background(), "hi")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || !strings.Contains(se.Body, "bad key") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestAnthropicJoinsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`))
	}))
	defer srv.Close()

	c := &AnthropicClient{APIKey: "k", Model: "m", URL: srv.URL}
	got, err := c.GenerateText(context.Background(), "hi")
	if err != nil || got != "ab" {
		t.Fatalf("GenerateText = %q, %v", got, err)
	}
}

func TestGeminiHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" || r.URL.Query().Get("key") != "k" {
			t.Errorf("url = %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"level\":\"Beginner\"}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{Provider: "gemini", GoogleKey: "k", GeminiURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*GeminiHTTPClient); !ok {
		t.Fatalf("expected REST client when a URL is set, got %T", c)
	}
	got, err := c.GenerateText(context.Background(), "hi")
	if err != nil || got != `{"level":"Beginner"}` {
		t.Fatalf("GenerateText = %q, %v", got, err)
	}
}

func TestGeminiHTTPNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()
	c := &GeminiHTTPClient{APIKey: "k", Model: "m", BaseURL: srv.URL}
	if _, err := c.GenerateText(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("he"), genai.Text("llo")}}},
	}}
	if got := firstText(resp); got != "hello" {
		t.Fatalf("firstText = %q", got)
	}
	if got := firstText(nil); got != "" {
		t.Fatalf("firstText(nil) = %q", got)
	}
}

func TestFactorySelection(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"nothing configured", Config{}, "*llm.MockClient"},
		{"openai by key", Config{OpenAIKey: "k"}, "*llm.OpenAIClient"},
		{"anthropic by key", Config{AnthropicKey: "k"}, "*llm.AnthropicClient"},
		{"named without key", Config{Provider: "openai"}, "*llm.MockClient"},
		{"explicit mock", Config{Provider: "mock", OpenAIKey: "k"}, "*llm.MockClient"},
		{"unknown", Config{Provider: "nope"}, "*llm.MockClient"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(ctx, tc.cfg, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := typeName(c); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}

	c, _ := New(ctx, Config{OpenAIKey: "k", Model: "custom"}, nil)
	if oc := c.(*OpenAIClient); oc.Model != "custom" {
		t.Fatalf("model = %q", oc.Model)
	}
}

func typeName(c Client) string {
	switch c.(type) {
	case *MockClient:
		return "*llm.MockClient"
	case *OpenAIClient:
		return "*llm.OpenAIClient"
	case *AnthropicClient:
		return "*llm.AnthropicClient"
	case *GeminiHTTPClient:
		return "*llm.GeminiHTTPClient"
	case *GeminiClient:
		return "*llm.GeminiClient"
	}
	return "unknown"
}

func TestMockEmbedsJSONInProse(t *testing.T) {
	m := &MockClient{}
	got, err := m.GenerateText(context.Background(), "Tone...\nTask: \"Write report\"\nMore")
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(got, "{") || !strings.Contains(got, `"level": "Beginner"`) || !strings.Contains(got, "Write report") {
		t.Fatalf("unexpected mock output: %s", got)
	}
	if len(m.Prompts) != 1 {
		t.Fatalf("prompts = %d", len(m.Prompts))
	}
}
