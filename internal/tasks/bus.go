package tasks

import (
	"errors"
	"io"
	"log"

	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/models"
)

type binding struct {
	store  *Store
	logger *log.Logger
}

func (b binding) TaskCreated(e events.TaskCreated) {
	if err := b.store.Insert(e.Task()); err != nil {
		if errors.Is(err, ErrPersist) {
			b.logger.Printf("task %s created but not saved: %v", e.ID, err)
			return
		}
		b.logger.Printf("task %s rejected: %v", e.ID, err)
	}
}

func (b binding) TaskEnriched(e events.TaskEnriched) {
	enr := e.Enrichment()
	found, err := b.store.Merge(e.ID, models.Patch{Enrichment: &enr})
	switch {
	case err != nil:
		b.logger.Printf("enrichment for %s not applied: %v", e.ID, err)
	case !found:
		b.logger.Printf("enrichment for %s dropped: task no longer exists", e.ID)
	}
}

func (binding) ToneChanged(events.ToneChanged) {}

// Connect makes the store follow the bus: TaskCreated inserts, TaskEnriched merges.
// The returned func detaches it.
func Connect(bus *events.Bus, store *Store, logger *log.Logger) func() {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return bus.Subscribe(binding{store: store, logger: logger})
}
