package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/models"
)

// State is the enrichment sub-state of a task. It lives in memory only.
type State string

const (
	StateIdle     State = "idle"
	StateInFlight State = "in_flight"
	StateFailed   State = "failed"
	StateResolved State = "resolved"
)

// Attempt describes the latest enrichment call for a task.
type Attempt struct {
	State State     `json:"state"`
	Err   error     `json:"-"`
	At    time.Time `json:"at,omitzero"`
}

// Message is the failure text for display, empty unless the attempt failed.
func (a Attempt) Message() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

var (
	ErrUnknownTask = errors.New("task not found")
	// ErrSuperseded reports a successful call whose result was not applied: the task
	// was forgotten or a newer call already resolved.
	ErrSuperseded = errors.New("enrichment result superseded")
)

// Publisher is the bus side the pipeline needs.
type Publisher interface {
	Publish(events.Event)
}

// TaskReader looks up the current version of a task for regeneration.
type TaskReader interface {
	Get(id string) (models.Task, bool)
}

// ToneSource supplies the tone for regeneration.
type ToneSource interface {
	Tone() models.Tone
}

type Option func(*Pipeline)

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithToneSource(ts ToneSource) Option {
	return func(p *Pipeline) { p.tones = ts }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs enrichment calls and publishes their results. It never writes to the
// store directly; the store follows TaskEnriched on the bus.
type Pipeline struct {
	gen    Generator
	bus    Publisher
	tasks  TaskReader
	tones  ToneSource
	logger *log.Logger
	now    func() time.Time

	// pub orders the resolve decision with its publish, so an older result can
	// never land after a newer one.
	pub      sync.Mutex
	mu       sync.Mutex
	seq      uint64
	attempts map[string]attempt
}

type attempt struct {
	Attempt
	latest     uint64 // newest call started
	latestDone bool
	resolved   uint64 // newest call whose result was published
}

func NewPipeline(gen Generator, bus Publisher, tasks TaskReader, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:      gen,
		bus:      bus,
		tasks:    tasks,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		attempts: map[string]attempt{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Enrich requests a result for task in tone. On success it publishes TaskEnriched and
// returns the result. On failure the task is left pending and the attempt is marked
// failed. A successful call is applied unless the task was forgotten or a newer call
// already resolved, in which case it returns ErrSuperseded.
func (p *Pipeline) Enrich(ctx context.Context, task models.Task, tone models.Tone) (models.Enrichment, error) {
	if _, ok := models.ParseTone(string(tone)); !ok {
		tone = models.DefaultTone
	}
	seq := p.begin(task.ID)

	res, err := p.gen.Generate(ctx, RequestFor(task, tone))
	if err != nil {
		p.logger.Printf("enrich %s failed: %v", task.ID, err)
		p.fail(task.ID, seq, err)
		return models.Enrichment{}, err
	}

	p.pub.Lock()
	defer p.pub.Unlock()
	if !p.resolve(task.ID, seq) {
		p.logger.Printf("enrich %s: result superseded, dropped", task.ID)
		return models.Enrichment{}, ErrSuperseded
	}
	p.bus.Publish(events.TaskEnriched{
		ID:           task.ID,
		Excuses:      res.Excuses,
		Alternatives: res.Alternatives,
		Level:        res.Level,
	})
	return res, nil
}

// Regenerate re-runs enrichment for a stored task with the current tone. The result
// replaces the previous one.
func (p *Pipeline) Regenerate(ctx context.Context, id string) (models.Enrichment, error) {
	t, ok := p.tasks.Get(id)
	if !ok {
		return models.Enrichment{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	tone := models.DefaultTone
	if p.tones != nil {
		tone = p.tones.Tone()
	}
	return p.Enrich(ctx, t, tone)
}

// Attempt returns the latest attempt for id; a task never tried is idle.
func (p *Pipeline) Attempt(id string) Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.attempts[id]; ok {
		return a.Attempt
	}
	return Attempt{State: StateIdle}
}

// Forget drops the attempt state of a deleted task. A call still in flight for it
// will not publish.
func (p *Pipeline) Forget(id string) {
	p.mu.Lock()
	delete(p.attempts, id)
	p.mu.Unlock()
}

func (p *Pipeline) begin(id string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	a := p.attempts[id]
	a.Attempt = Attempt{State: StateInFlight, At: p.now()}
	a.latest, a.latestDone = p.seq, false
	p.attempts[id] = a
	return p.seq
}

// fail records a failed call. Only the newest call decides the visible state; an
// older failure leaves a newer call's outcome alone.
func (p *Pipeline) fail(id string, seq uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[id]
	if !ok || a.latest != seq {
		return
	}
	a.Attempt = Attempt{State: StateFailed, Err: err, At: p.now()}
	a.latestDone = true
	p.attempts[id] = a
}

// resolve reports whether a successful call at seq should be published and records
// it. The state stays in flight while a newer call is still running.
func (p *Pipeline) resolve(id string, seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[id]
	if !ok || a.resolved > seq {
		return false
	}
	a.resolved = seq
	if a.latest == seq {
		a.latestDone = true
	}
	if a.latestDone {
		a.Attempt = Attempt{State: StateResolved, At: p.now()}
	}
	p.attempts[id] = a
	return true
}
