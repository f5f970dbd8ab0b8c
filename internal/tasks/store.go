// Package tasks owns the task collection. Exactly one Store is expected per
// process: main opens it, hands it to every consumer, and drops it on exit. Every
// mutation is written through to the persister before subscribers are told.
package tasks

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/procrastinator/internal/models"
)

// Persister is the storage side of the store; storage.Adapter implements it.
type Persister interface {
	LoadTasks() []models.Task
	SaveTasks([]models.Task) error
}

// Snapshot is an independent copy of the collection. Version grows by one per
// committed mutation, so a listener can drop snapshots older than one it has seen.
type Snapshot struct {
	Version uint64
	Tasks   []models.Task
}

// Find returns the task with id from the snapshot.
func (s Snapshot) Find(id string) (models.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

type Store struct {
	persist Persister
	logger  *log.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	tasks   []models.Task
	used    map[string]struct{}
	version uint64

	lmu       sync.RWMutex
	nextLis   int
	listeners map[int]func(Snapshot)
}

// Open loads the persisted collection and returns the store that owns it.
func Open(p Persister, opts ...Option) *Store {
	s := &Store{
		persist:   p,
		logger:    log.New(io.Discard, "", 0),
		now:       time.Now,
		newID:     uuid.NewString,
		used:      map[string]struct{}{},
		listeners: map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}

	loaded := p.LoadTasks()
	s.tasks = make([]models.Task, 0, len(loaded))
	for _, t := range loaded {
		if t.ID == "" {
			s.logger.Printf("dropping stored task without id: %q", t.Text)
			continue
		}
		if _, dup := s.used[t.ID]; dup {
			s.logger.Printf("dropping duplicate stored task %s", t.ID)
			continue
		}
		s.used[t.ID] = struct{}{}
		s.tasks = append(s.tasks, normalize(t))
	}
	s.logger.Printf("loaded %d tasks", len(s.tasks))
	return s
}

// List returns the current collection in display order.
func (s *Store) List() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

// Subscribe registers fn to receive a snapshot after every committed mutation.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.lmu.Lock()
	s.nextLis++
	id := s.nextLis
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// Create assigns a fresh id to the draft and appends it with empty enrichment.
func (s *Store) Create(d models.Draft) (string, error) {
	d, err := ValidateDraft(d)
	if err != nil {
		return "", err
	}
	var id string
	err = s.commit(func(tasks []models.Task) ([]models.Task, bool, error) {
		id = s.freshIDLocked()
		t := models.Task{
			ID:               id,
			Text:             d.Text,
			CreatedAt:        s.now(),
			Status:           d.Status,
			Category:         d.Category,
			Priority:         d.Priority,
			Tags:             d.Tags,
			DueDate:          d.DueDate,
			EstimatedMinutes: d.EstimatedMinutes,
		}
		s.used[id] = struct{}{}
		return append(tasks, normalize(t)), true, nil
	})
	return id, err
}

// Insert appends a task whose identity was assigned by the creation surface.
func (s *Store) Insert(t models.Task) error {
	d, err := ValidateDraft(models.Draft{
		Text:             t.Text,
		Category:         t.Category,
		Priority:         t.Priority,
		Tags:             t.Tags,
		Status:           t.Status,
		EstimatedMinutes: t.EstimatedMinutes,
	})
	if err != nil {
		return err
	}
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidField)
	}
	t.Text, t.Category, t.Priority, t.Tags, t.Status = d.Text, d.Category, d.Priority, d.Tags, d.Status
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	return s.commit(func(tasks []models.Task) ([]models.Task, bool, error) {
		if _, dup := s.used[t.ID]; dup {
			return tasks, false, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
		}
		s.used[t.ID] = struct{}{}
		return append(tasks, normalize(t)), true, nil
	})
}

// Merge replaces the fields present in p. An unknown id is not an error: the task may
// have been deleted while an enrichment call was in flight.
func (s *Store) Merge(id string, p models.Patch) (bool, error) {
	return s.update(id, func(t *models.Task) (bool, error) {
		return true, applyPatch(t, p)
	})
}

// Remove deletes the task. Its id stays reserved.
func (s *Store) Remove(id string) (bool, error) {
	found := false
	err := s.commit(func(tasks []models.Task) ([]models.Task, bool, error) {
		for i := range tasks {
			if tasks[i].ID == id {
				found = true
				return append(tasks[:i], tasks[i+1:]...), true, nil
			}
		}
		return tasks, false, nil
	})
	return found, err
}

// update runs fn against a copy of the task and commits it if fn reports a change.
func (s *Store) update(id string, fn func(t *models.Task) (bool, error)) (bool, error) {
	found := false
	err := s.commit(func(tasks []models.Task) ([]models.Task, bool, error) {
		for i := range tasks {
			if tasks[i].ID != id {
				continue
			}
			found = true
			t := tasks[i].Clone()
			changed, err := fn(&t)
			if err != nil || !changed {
				return tasks, false, err
			}
			tasks[i] = normalize(t)
			return tasks, true, nil
		}
		return tasks, false, nil
	})
	return found, err
}

// commit applies fn to a working copy under the lock, persists the result, then
// notifies subscribers. A failed save keeps the in-memory change.
func (s *Store) commit(fn func([]models.Task) ([]models.Task, bool, error)) error {
	s.mu.Lock()
	work := cloneTasks(s.tasks)
	next, changed, err := fn(work)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.tasks = next
	s.version++
	saveErr := s.persist.SaveTasks(cloneTasks(next))
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if saveErr != nil {
		s.logger.Printf("persist failed, keeping in-memory state: %v", saveErr)
	}
	s.notify(snap)
	if saveErr != nil {
		return fmt.Errorf("%w: %w", ErrPersist, saveErr)
	}
	return nil
}

func (s *Store) notify(snap Snapshot) {
	s.lmu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.lmu.RUnlock()

	for i, fn := range fns {
		if i == 0 {
			fn(snap)
			continue
		}
		fn(Snapshot{Version: snap.Version, Tasks: cloneTasks(snap.Tasks)})
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Version: s.version, Tasks: cloneTasks(s.tasks)}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) freshIDLocked() string {
	for {
		id := s.newID()
		if _, used := s.used[id]; !used && id != "" {
			return id
		}
	}
}

func cloneTasks(in []models.Task) []models.Task {
	out := make([]models.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// normalize makes empty collections encode as [] rather than null.
func normalize(t models.Task) models.Task {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Excuses == nil {
		t.Excuses = []string{}
	}
	if t.Alternatives == nil {
		t.Alternatives = []string{}
	}
	if !t.Status.Valid() {
		t.Status = models.StatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = models.DefaultPriority
	}
	return t
}
