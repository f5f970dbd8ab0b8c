package app

import (
	"context"
	"testing"

	"github.com/example/procrastinator/internal/config"
	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/models"
)

func TestNewWithMockProviderPersists(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.LLM.Provider = "mock"

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.Generator.(enrich.LLMGenerator); !ok {
		t.Fatalf("generator = %T", a.Generator)
	}
	id, err := a.Orchestrator.Submit(context.Background(), models.Draft{Text: "Renew passport"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := a.Prefs.SetTone("scifi"); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	got, ok := again.Store.Get(id)
	if !ok || !got.Enriched() || got.Level != models.LevelBeginner {
		t.Fatalf("reloaded = %+v, %v", got, ok)
	}
	if again.Prefs.Tone() != models.ToneSciFi {
		t.Fatalf("tone = %q", again.Prefs.Tone())
	}
}

func TestGeneratorURLSelectsHTTPGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.GeneratorURL = "http://127.0.0.1:1"

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	g, ok := a.Generator.(enrich.HTTPGenerator)
	if !ok || g.BaseURL != cfg.GeneratorURL {
		t.Fatalf("generator = %#v", a.Generator)
	}
}
