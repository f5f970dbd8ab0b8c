package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/example/procrastinator/internal/models"
)

const (
	TasksKey = "tasks"
	ToneKey  = "aiTone"
)

// Adapter is the serialization boundary between the task store and a KV.
type Adapter struct {
	kv     KV
	logger *log.Logger
}

func NewAdapter(kv KV, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Adapter{kv: kv, logger: logger}
}

// LoadTasks returns the stored collection. Missing, unreadable or corrupt data all
// yield an empty collection; a single unreadable record is skipped and logged.
func (a *Adapter) LoadTasks() []models.Task {
	b, ok, err := a.kv.Get(TasksKey)
	if err != nil {
		a.logger.Printf("load tasks: %v", err)
		return []models.Task{}
	}
	if !ok || len(strings.TrimSpace(string(b))) == 0 {
		return []models.Task{}
	}
	var records []json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		a.logger.Printf("load tasks: discarding corrupt data: %v", err)
		return []models.Task{}
	}
	tasks := make([]models.Task, 0, len(records))
	for i, rec := range records {
		var t models.Task
		if err := json.Unmarshal(rec, &t); err != nil {
			a.logger.Printf("load tasks: skipping record %d: %v", i, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// SaveTasks overwrites the stored collection with a single write.
func (a *Adapter) SaveTasks(tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := a.kv.Set(TasksKey, b); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// LoadTone returns the saved tone, or the default when none is stored or it is unknown.
func (a *Adapter) LoadTone() models.Tone {
	b, ok, err := a.kv.Get(ToneKey)
	if err != nil {
		a.logger.Printf("load tone: %v", err)
		return models.DefaultTone
	}
	if !ok {
		return models.DefaultTone
	}
	raw := strings.TrimSpace(string(b))
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		raw = s
	}
	t, ok := models.ParseTone(raw)
	if !ok {
		return models.DefaultTone
	}
	return t
}

func (a *Adapter) SaveTone(t models.Tone) error {
	b, _ := json.Marshal(string(t))
	if err := a.kv.Set(ToneKey, b); err != nil {
		return fmt.Errorf("save tone: %w", err)
	}
	return nil
}
