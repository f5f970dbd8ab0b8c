package view

import (
	"sync"

	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/tasks"
)

// Source is the store side of a live view.
type Source interface {
	List() tasks.Snapshot
	Subscribe(func(tasks.Snapshot)) func()
}

// Live keeps a filtered list current as the store changes. Snapshots older than the
// newest one seen are ignored, so out-of-order delivery cannot roll the view back.
type Live struct {
	mu       sync.Mutex
	filter   Filter
	version  uint64
	seen     bool
	all      []models.Task
	current  []models.Task
	nextLis  int
	onChange map[int]func([]models.Task)
	unsub    func()
}

func NewLive(src Source, f Filter) *Live {
	l := &Live{filter: f, current: []models.Task{}, onChange: map[int]func([]models.Task){}}
	l.unsub = src.Subscribe(l.receive)
	l.receive(src.List())
	return l
}

func (l *Live) receive(snap tasks.Snapshot) {
	l.mu.Lock()
	if l.seen && snap.Version <= l.version {
		l.mu.Unlock()
		return
	}
	l.seen = true
	l.version = snap.Version
	l.all = snap.Tasks
	l.recomputeLocked()
}

func (l *Live) SetFilter(f Filter) {
	l.mu.Lock()
	l.filter = f
	l.recomputeLocked()
}

// recomputeLocked is entered with l.mu held and releases it before calling listeners.
func (l *Live) recomputeLocked() {
	l.current = Apply(l.all, l.filter)
	out := cloneList(l.current)
	fns := make([]func([]models.Task), 0, len(l.onChange))
	for i := 1; i <= l.nextLis; i++ {
		if fn, ok := l.onChange[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(cloneList(out))
	}
}

func (l *Live) Current() []models.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneList(l.current)
}

func (l *Live) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Version is the store version the current list was computed from.
func (l *Live) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// OnChange registers fn to receive the list after every recomputation.
func (l *Live) OnChange(fn func([]models.Task)) func() {
	l.mu.Lock()
	l.nextLis++
	id := l.nextLis
	l.onChange[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.onChange, id)
		l.mu.Unlock()
	}
}

// Close detaches the view from its source.
func (l *Live) Close() {
	if l.unsub != nil {
		l.unsub()
	}
}

func cloneList(in []models.Task) []models.Task {
	out := make([]models.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
