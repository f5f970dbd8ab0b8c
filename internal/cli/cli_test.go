package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/procrastinator/internal/app"
	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/storage"
)

type cannedGen struct{}

func (cannedGen) Generate(ctx context.Context, req enrich.Request) (models.Enrichment, error) {
	return models.Enrichment{
		Excuses:      []string{"Too sunny for " + req.Task, "Inbox zero first", "Tone is " + string(req.Tone)},
		Alternatives: []string{"Stretch", "Tea", "Sort socks"},
		Level:        models.LevelExpert,
	}, nil
}

type harness struct {
	t   *testing.T
	dir string
	kv  *storage.MemoryKV
}

func newHarness(t *testing.T) *harness {
	t.Setenv("PROCRASTINATOR_CONFIG", "")
	return &harness{t: t, dir: t.TempDir(), kv: storage.NewMemoryKV()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd(app.WithKV(h.kv), app.WithGenerator(cannedGen{}))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--data-dir", h.dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) must(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func (h *harness) tasks() []models.Task {
	h.t.Helper()
	var ts []models.Task
	if err := json.Unmarshal([]byte(h.must("list", "--json")), &ts); err != nil {
		h.t.Fatal(err)
	}
	return ts
}

func TestAddListShow(t *testing.T) {
	h := newHarness(t)
	out := h.must("add", "Write", "report", "-p", "high", "-t", "work", "--due", "2026-03-01")
	if !strings.Contains(out, "Write report") || !strings.Contains(out, "1. Too sunny for Write report") ||
		!strings.Contains(out, "level: Expert") {
		t.Fatalf("add output:\n%s", out)
	}
	h.must("add", "Water plants")

	ts := h.tasks()
	if len(ts) != 2 || ts[0].Priority != models.PriorityHigh || ts[0].DueDate == nil {
		t.Fatalf("tasks = %+v", ts)
	}

	out = h.must("list", "--priority", "high")
	if !strings.Contains(out, "Write report") || strings.Contains(out, "Water plants") {
		t.Fatalf("filtered list:\n%s", out)
	}
	if out := h.must("list", "--tag", "nope"); !strings.Contains(out, "No tasks.") {
		t.Fatalf("empty list:\n%s", out)
	}
	if _, err := h.run("list", "--status", "someday"); err == nil {
		t.Fatal("expected bad filter error")
	}

	out = h.must("show", ts[1].ID[:6])
	if !strings.Contains(out, "Water plants") || !strings.Contains(out, "instead you could:") {
		t.Fatalf("show output:\n%s", out)
	}
	if _, err := h.run("show", "zzz-no-such"); err == nil {
		t.Fatal("expected unknown id error")
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("add", "   "); err == nil {
		t.Fatal("expected empty text error")
	}
	if _, err := h.run("add", "x", "-t", "a,b,c,d,e,f"); err == nil {
		t.Fatal("expected too many tags error")
	}
	if _, err := h.run("add", "x", "--due", "tomorrow"); err == nil {
		t.Fatal("expected bad due error")
	}
	if n := len(h.tasks()); n != 0 {
		t.Fatalf("tasks = %d", n)
	}
}

func TestStatusTagsAndRemove(t *testing.T) {
	h := newHarness(t)
	h.must("add", "Fix bike", "-t", "home")
	id := h.tasks()[0].ID

	h.must("status", id, "in_progress")
	if st := h.tasks()[0].Status; st != models.StatusInProgress {
		t.Fatalf("status = %q", st)
	}
	if out := h.must("done", id); !strings.Contains(out, "done") {
		t.Fatalf("done output: %s", out)
	}
	if out := h.must("done", id); !strings.Contains(out, string(models.StatusNotStarted)) {
		t.Fatalf("second done output: %s", out)
	}

	h.must("tag", "add", id, "weekend")
	h.must("tag", "rm", id, "home")
	if tags := h.tasks()[0].Tags; len(tags) != 1 || tags[0] != "weekend" {
		t.Fatalf("tags = %v", tags)
	}

	if out := h.must("postpone", id, "--by", "48h"); !strings.Contains(out, "now due") {
		t.Fatalf("postpone output: %s", out)
	}
	if got := h.tasks()[0]; got.PostponeCount != 1 || got.DueDate == nil {
		t.Fatalf("postponed = %+v", got)
	}

	h.must("rm", id)
	if n := len(h.tasks()); n != 0 {
		t.Fatalf("tasks after rm = %d", n)
	}
}

func TestToneAndRegen(t *testing.T) {
	h := newHarness(t)
	if out := h.must("tone"); !strings.Contains(out, "* personal") {
		t.Fatalf("tone list:\n%s", out)
	}
	h.must("tone", "medieval")
	if out := h.must("tone"); !strings.Contains(out, "* medieval") {
		t.Fatalf("tone list:\n%s", out)
	}
	if _, err := h.run("tone", "pirate"); err == nil {
		t.Fatal("expected unknown tone error")
	}

	h.must("add", "Call mum")
	id := h.tasks()[0].ID
	if out := h.must("regen", id); !strings.Contains(out, "Tone is medieval") {
		t.Fatalf("regen output:\n%s", out)
	}
}

func TestBoard(t *testing.T) {
	h := newHarness(t)
	h.must("add", "a")
	h.must("add", "b")
	h.must("done", h.tasks()[1].ID)
	out := h.must("board")
	for _, want := range []string{"== not_started (1)", "== in_progress (0)", "== done (1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("board missing %q:\n%s", want, out)
		}
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "todo.md")
	body := "- [ ] Book dentist #health\n- [x] Pay rent\n\n* " + strings.Repeat("#t ", 6) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out := h.must("import", path, "--dry-run")
	if !strings.Contains(out, `would add "Book dentist"`) || len(h.tasks()) != 0 {
		t.Fatalf("dry run:\n%s", out)
	}

	out = h.must("import", path)
	if !strings.Contains(out, "imported 2 tasks") {
		t.Fatalf("import output:\n%s", out)
	}
	ts := h.tasks()
	if len(ts) != 2 || ts[1].Status != models.StatusDone || !ts[0].Enriched() {
		t.Fatalf("imported = %+v", ts)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	h := newHarness(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret-value")
	out := h.must("config", "init")
	path := filepath.Join(h.dir, "config.yaml")
	if !strings.Contains(out, path) {
		t.Fatalf("init output: %s", out)
	}
	if _, err := h.run("config", "init"); err == nil {
		t.Fatal("expected exists error")
	}
	out = h.must("config", "show")
	if strings.Contains(out, "sk-secret-value") || !strings.Contains(out, "sk") {
		t.Fatalf("show output leaked or lost key:\n%s", out)
	}
}
