package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/preferences"
	"github.com/example/procrastinator/internal/tasks"
)

// Orchestrator is the creation surface: it validates drafts, announces them on the
// bus and kicks off enrichment without waiting for it.
type Orchestrator struct {
	Bus      *events.Bus
	Store    *tasks.Store
	Pipeline *enrich.Pipeline
	Prefs    *preferences.Preferences

	logger *log.Logger
	now    func() time.Time
	newID  func() string

	wg sync.WaitGroup
}

type Option func(*Orchestrator)

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

func New(bus *events.Bus, store *tasks.Store, pipeline *enrich.Pipeline, prefs *preferences.Preferences, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		Bus:      bus,
		Store:    store,
		Pipeline: pipeline,
		Prefs:    prefs,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit validates d, publishes TaskCreated and starts enrichment in the background.
// It returns as soon as the task is stored. Enrichment outlives ctx's cancellation
// but keeps its values.
func (o *Orchestrator) Submit(ctx context.Context, d models.Draft) (string, error) {
	d, err := tasks.ValidateDraft(d)
	if err != nil {
		return "", err
	}
	id := o.newID()
	o.Bus.Publish(events.TaskCreated{
		ID:               id,
		Text:             d.Text,
		Tags:             d.Tags,
		Category:         d.Category,
		Priority:         d.Priority,
		Due:              d.DueDate,
		CreatedAt:        o.now(),
		Status:           d.Status,
		EstimatedMinutes: d.EstimatedMinutes,
	})
	task, ok := o.Store.Get(id)
	if !ok {
		return "", fmt.Errorf("task %s was not stored", id)
	}
	o.logger.Printf("task %s created: %q", id, task.Text)

	tone := o.tone()
	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, err := o.Pipeline.Enrich(bg, task, tone)
		switch {
		case errors.Is(err, enrich.ErrSuperseded):
			o.logger.Printf("task %s: first result superseded", id)
		case err != nil:
			o.logger.Printf("task %s left pending: %v", id, err)
		}
	}()
	return id, nil
}

// SubmitAll submits every draft and returns the ids of those accepted along with
// the per-draft errors.
func (o *Orchestrator) SubmitAll(ctx context.Context, drafts []models.Draft) ([]string, []error) {
	var ids []string
	var errs []error
	for i, d := range drafts {
		id, err := o.Submit(ctx, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("draft %d: %w", i+1, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

// Regenerate re-runs enrichment for id synchronously with the current tone.
func (o *Orchestrator) Regenerate(ctx context.Context, id string) (models.Enrichment, error) {
	res, err := o.Pipeline.Regenerate(ctx, id)
	if errors.Is(err, enrich.ErrUnknownTask) {
		return res, fmt.Errorf("%w: %s", tasks.ErrNotFound, id)
	}
	return res, err
}

// Delete removes the task. An enrichment still in flight for it is not cancelled; its
// result is dropped.
func (o *Orchestrator) Delete(id string) (bool, error) {
	found, err := o.Store.Remove(id)
	if found {
		o.Pipeline.Forget(id)
		o.logger.Printf("task %s deleted", id)
	}
	return found, err
}

// Wait blocks until every background enrichment started by Submit has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) tone() models.Tone {
	if o.Prefs == nil {
		return models.DefaultTone
	}
	return o.Prefs.Tone()
}
