package events

import (
	"time"

	"github.com/example/procrastinator/internal/models"
)

// Kind names an event on the wire (SSE, logs).
type Kind string

const (
	KindTaskCreated  Kind = "task_created"
	KindTaskEnriched Kind = "task_enriched"
	KindToneChanged  Kind = "tone_changed"
)

// Event is a closed set: only the three types in this file implement it.
type Event interface {
	Kind() Kind
	Dispatch(h Handler)
	sealed()
}

// Handler must handle every kind; adding a kind breaks every subscriber at compile time.
type Handler interface {
	TaskCreated(TaskCreated)
	TaskEnriched(TaskEnriched)
	ToneChanged(ToneChanged)
}

// TaskCreated is published once per creation, before enrichment is requested.
type TaskCreated struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Tags      []string        `json:"tags"`
	Category  models.Category `json:"category,omitempty"`
	Priority  models.Priority `json:"priority"`
	Due       *time.Time      `json:"due,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`

	// Not part of the original payload; carried so importers can create finished tasks.
	Status           models.Status `json:"status,omitempty"`
	EstimatedMinutes int           `json:"estimatedDuration,omitempty"`
}

func (TaskCreated) Kind() Kind           { return KindTaskCreated }
func (e TaskCreated) Dispatch(h Handler) { h.TaskCreated(e) }
func (TaskCreated) sealed()              {}

// Task builds the pending task this event describes.
func (e TaskCreated) Task() models.Task {
	status := e.Status
	if !status.Valid() {
		status = models.StatusNotStarted
	}
	t := models.Task{
		ID:               e.ID,
		Text:             e.Text,
		CreatedAt:        e.CreatedAt,
		Status:           status,
		Category:         e.Category,
		Priority:         e.Priority,
		Tags:             append([]string{}, e.Tags...),
		Excuses:          []string{},
		Alternatives:     []string{},
		EstimatedMinutes: e.EstimatedMinutes,
	}
	if e.Due != nil {
		d := *e.Due
		t.DueDate = &d
	}
	return t
}

// TaskEnriched is published once per successful generation call.
type TaskEnriched struct {
	ID           string       `json:"id"`
	Excuses      []string     `json:"excuses"`
	Alternatives []string     `json:"alternatives"`
	Level        models.Level `json:"level"`
}

func (TaskEnriched) Kind() Kind           { return KindTaskEnriched }
func (e TaskEnriched) Dispatch(h Handler) { h.TaskEnriched(e) }
func (TaskEnriched) sealed()              {}

func (e TaskEnriched) Enrichment() models.Enrichment {
	return models.Enrichment{
		Excuses:      append([]string{}, e.Excuses...),
		Alternatives: append([]string{}, e.Alternatives...),
		Level:        e.Level,
	}
}

// ToneChanged is published when the user picks a different narrative tone.
type ToneChanged struct {
	Tone models.Tone `json:"tone"`
}

func (ToneChanged) Kind() Kind           { return KindToneChanged }
func (e ToneChanged) Dispatch(h Handler) { h.ToneChanged(e) }
func (ToneChanged) sealed()              {}

// Funcs adapts optional callbacks to a Handler; nil fields ignore their kind.
type Funcs struct {
	OnTaskCreated  func(TaskCreated)
	OnTaskEnriched func(TaskEnriched)
	OnToneChanged  func(ToneChanged)
}

func (f Funcs) TaskCreated(e TaskCreated) {
	if f.OnTaskCreated != nil {
		f.OnTaskCreated(e)
	}
}

func (f Funcs) TaskEnriched(e TaskEnriched) {
	if f.OnTaskEnriched != nil {
		f.OnTaskEnriched(e)
	}
}

func (f Funcs) ToneChanged(e ToneChanged) {
	if f.OnToneChanged != nil {
		f.OnToneChanged(e)
	}
}
