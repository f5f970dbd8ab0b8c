package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/procrastinator/internal/models"
)

func TestFileKV_SetGetDelete(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV: %v", err)
	}
	if _, ok, err := kv.Get("tasks"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set("tasks", []byte(`[1]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set("tasks", []byte(`[2]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b, ok, err := kv.Get("tasks")
	if err != nil || !ok || string(b) != `[2]` {
		t.Fatalf("Get = %q %v %v", b, ok, err)
	}

	entries, _ := os.ReadDir(kv.Dir())
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}

	if err := kv.Delete("tasks"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := kv.Delete("tasks"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
	if _, ok, _ := kv.Get("tasks"); ok {
		t.Fatal("expected key gone")
	}
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, _ := NewFileKV(t.TempDir())
	if err := kv.Set("../escape", []byte("x")); err == nil {
		t.Fatal("expected invalid key error")
	}
}

func TestAdapter_RoundTripTasks(t *testing.T) {
	kv, _ := NewFileKV(t.TempDir())
	a := NewAdapter(kv, nil)

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := []models.Task{{
		ID:           "a",
		Text:         "Write report",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:       models.StatusInProgress,
		Category:     models.CategoryWork,
		Priority:     models.PriorityHigh,
		Tags:         []string{"q1"},
		DueDate:      &due,
		Excuses:      []string{"a", "b", "c"},
		Alternatives: []string{"x", "y", "z"},
		Level:        models.LevelBeginner,
	}}
	if err := a.SaveTasks(in); err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}
	out := a.LoadTasks()
	if len(out) != 1 {
		t.Fatalf("expected 1 task, got %d", len(out))
	}
	got := out[0]
	if got.ID != "a" || got.Status != models.StatusInProgress || got.Priority != models.PriorityHigh {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date lost: %v", got.DueDate)
	}
	if !got.CreatedAt.Equal(in[0].CreatedAt) || got.Level != models.LevelBeginner {
		t.Fatalf("fields lost: %+v", got)
	}
}

func TestAdapter_CorruptDataIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tasks.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	kv, _ := NewFileKV(dir)
	a := NewAdapter(kv, nil)
	if got := a.LoadTasks(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", got)
	}
}

func TestAdapter_MissingDataIsEmpty(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)
	if got := a.LoadTasks(); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}

func TestAdapter_SaveFailureIsReported(t *testing.T) {
	kv := NewMemoryKV()
	kv.SetFailWrites(true)
	a := NewAdapter(kv, nil)
	err := a.SaveTasks([]models.Task{{ID: "a", Text: "x"}})
	if !errors.Is(err, ErrQuota) {
		t.Fatalf("expected ErrQuota, got %v", err)
	}
}

func TestAdapter_Tone(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, nil)
	if got := a.LoadTone(); got != models.TonePersonal {
		t.Fatalf("default tone = %q", got)
	}
	if err := a.SaveTone(models.ToneMedieval); err != nil {
		t.Fatalf("SaveTone: %v", err)
	}
	if got := a.LoadTone(); got != models.ToneMedieval {
		t.Fatalf("tone = %q", got)
	}

	// the original app stored the bare string
	_ = kv.Set(ToneKey, []byte("scifi"))
	if got := a.LoadTone(); got != models.ToneSciFi {
		t.Fatalf("bare tone = %q", got)
	}
	_ = kv.Set(ToneKey, []byte(`"pirate"`))
	if got := a.LoadTone(); got != models.DefaultTone {
		t.Fatalf("unknown tone should fall back, got %q", got)
	}
}

func TestAdapter_LegacyTasks(t *testing.T) {
	kv := NewMemoryKV()
	legacy := `[
	 {"id": 1718000000000, "text": "Old done", "createdAt": "2024-06-10T08:00:00.000Z", "completed": true,
	  "tags": [], "category": "Work", "priority": "high", "due": "2024-06-12T00:00:00.000Z"},
	 {"id": "b", "text": "Board task", "createdAt": "2024-06-10T08:00:00Z", "status": "IN_PROGRESS", "level": "Advanced"}
	]`
	_ = kv.Set(TasksKey, []byte(legacy))
	tasks := NewAdapter(kv, nil).LoadTasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "1718000000000" || tasks[0].Status != models.StatusDone {
		t.Fatalf("legacy completed task decoded as %+v", tasks[0])
	}
	if tasks[0].DueDate == nil {
		t.Fatal("legacy due field dropped")
	}
	if tasks[1].Status != models.StatusInProgress || tasks[1].Level != models.LevelExpert {
		t.Fatalf("board task decoded as %+v", tasks[1])
	}
	if tasks[1].Priority != models.DefaultPriority {
		t.Fatalf("missing priority should default, got %q", tasks[1].Priority)
	}
}

func TestAdapter_BadRecordDoesNotLoseCollection(t *testing.T) {
	kv := NewMemoryKV()
	stored := `[
	 {"id": "a", "text": "Odd status", "createdAt": "2024-06-10T08:00:00Z", "status": "someday"},
	 {"id": "b", "text": "Odd due", "createdAt": "2024-06-10T08:00:00Z", "dueDate": "next tuesday"},
	 {"text": "No id"},
	 {"id": "c", "text": "Fine", "createdAt": "2024-06-10T08:00:00Z", "status": "done"}
	]`
	_ = kv.Set(TasksKey, []byte(stored))
	tasks := NewAdapter(kv, nil).LoadTasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %+v", tasks)
	}
	if tasks[0].ID != "a" || tasks[0].Status != models.StatusNotStarted {
		t.Fatalf("unknown status decoded as %+v", tasks[0])
	}
	if tasks[1].ID != "b" || tasks[1].DueDate != nil {
		t.Fatalf("bad due date decoded as %+v", tasks[1])
	}
	if tasks[2].ID != "c" || tasks[2].Status != models.StatusDone {
		t.Fatalf("good record decoded as %+v", tasks[2])
	}
}
