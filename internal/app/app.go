// Package app wires one process worth of components: a single store, bus and
// pipeline built from the loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/example/procrastinator/internal/config"
	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/orchestrator"
	"github.com/example/procrastinator/internal/preferences"
	"github.com/example/procrastinator/internal/providers/llm"
	"github.com/example/procrastinator/internal/storage"
	"github.com/example/procrastinator/internal/tasks"
)

type App struct {
	Config       *config.Config
	Storage      *storage.Adapter
	Bus          *events.Bus
	Store        *tasks.Store
	Prefs        *preferences.Preferences
	Generator    enrich.Generator
	Pipeline     *enrich.Pipeline
	Orchestrator *orchestrator.Orchestrator

	client llm.Client
	unbind func()
}

type Option func(*options)

type options struct {
	kv  storage.KV
	gen enrich.Generator
}

// WithKV replaces the file store under cfg.DataDir.
func WithKV(kv storage.KV) Option {
	return func(o *options) { o.kv = kv }
}

// WithGenerator replaces the configured generator.
func WithGenerator(g enrich.Generator) Option {
	return func(o *options) { o.gen = g }
}

func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kv := o.kv
	if kv == nil {
		fkv, err := storage.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		kv = fkv
	}

	a := &App{Config: cfg, Generator: o.gen}
	if a.Generator == nil {
		switch {
		case cfg.GeneratorURL != "":
			a.Generator = enrich.HTTPGenerator{
				BaseURL: cfg.GeneratorURL,
				HTTP:    &http.Client{Timeout: cfg.LLM.Timeout},
			}
			logger.Printf("generation via %s", cfg.GeneratorURL)
		default:
			c, err := llm.New(ctx, cfg.LLM, logger)
			if err != nil {
				return nil, fmt.Errorf("llm client: %w", err)
			}
			a.client = c
			a.Generator = enrich.LLMGenerator{Client: c}
		}
	}

	a.Storage = storage.NewAdapter(kv, logger)
	a.Bus = events.NewBus(logger)
	a.Store = tasks.Open(a.Storage, tasks.WithLogger(logger))
	a.unbind = tasks.Connect(a.Bus, a.Store, logger)
	a.Prefs = preferences.New(a.Storage, a.Bus, logger)
	a.Pipeline = enrich.NewPipeline(a.Generator, a.Bus, a.Store,
		enrich.WithLogger(logger), enrich.WithToneSource(a.Prefs))
	a.Orchestrator = orchestrator.New(a.Bus, a.Store, a.Pipeline, a.Prefs, orchestrator.WithLogger(logger))
	return a, nil
}

// Close waits for background enrichment and releases the model client. The store
// has nothing to flush: every mutation was written through.
func (a *App) Close() error {
	a.Orchestrator.Wait()
	a.unbind()
	a.Prefs.Close()
	if a.client != nil {
		return llm.Close(a.client)
	}
	return nil
}
