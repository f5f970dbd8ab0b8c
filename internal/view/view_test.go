package view

import (
	"fmt"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/storage"
	"github.com/example/procrastinator/internal/tasks"
)

func sample() []models.Task {
	return []models.Task{
		{ID: "1", Text: "report", Status: models.StatusNotStarted, Category: models.CategoryWork, Priority: models.PriorityHigh, Tags: []string{"q1", "boss"}},
		{ID: "2", Text: "gym", Status: models.StatusDone, Category: models.CategoryHealth, Priority: models.PriorityLow, Tags: []string{}},
		{ID: "3", Text: "slides", Status: models.StatusInProgress, Category: models.CategoryWork, Priority: models.PriorityHigh, Tags: []string{"q1"}},
		{ID: "4", Text: "budget", Status: models.StatusNotStarted, Category: models.CategoryFinance, Priority: models.PriorityMedium, Tags: []string{"boss"}},
	}
}

func ids(ts []models.Task) []string {
	out := []string{}
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"zero filter", Filter{}, []string{"1", "2", "3", "4"}},
		{"all sentinels", Filter{Status: All, Category: All, Priority: All}, []string{"1", "2", "3", "4"}},
		{"status", Filter{Status: models.StatusNotStarted}, []string{"1", "4"}},
		{"category and priority", Filter{Category: models.CategoryWork, Priority: models.PriorityHigh}, []string{"1", "3"}},
		{"one tag", Filter{Tags: []string{"q1"}}, []string{"1", "3"}},
		{"all tags required", Filter{Tags: []string{"q1", "boss"}}, []string{"1"}},
		{"empty tag set", Filter{Tags: []string{}}, []string{"1", "2", "3", "4"}},
		{"no match", Filter{Status: models.StatusDone, Category: models.CategoryWork}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sample()
			got := Apply(in, tc.f)
			if got == nil {
				t.Fatal("Apply returned nil")
			}
			if !reflect.DeepEqual(ids(got), tc.want) {
				t.Fatalf("got %v, want %v", ids(got), tc.want)
			}
			if again := Apply(in, tc.f); !reflect.DeepEqual(again, got) {
				t.Fatal("Apply is not deterministic")
			}
			if !reflect.DeepEqual(in, sample()) {
				t.Fatal("Apply mutated its input")
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	q, _ := url.ParseQuery("status=TODO&category=work&priority=all&tag=q1&tags=boss,q1")
	f, err := ParseFilter(q)
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	want := Filter{Status: models.StatusNotStarted, Category: models.CategoryWork, Tags: []string{"q1", "boss"}}
	if !reflect.DeepEqual(f, want) {
		t.Fatalf("got %+v, want %+v", f, want)
	}
	for _, bad := range []string{"status=later", "category=hobby", "priority=urgent"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseFilter(q); err == nil {
			t.Fatalf("ParseFilter(%s) accepted", bad)
		}
	}
}

func TestBoard(t *testing.T) {
	cols := Board(sample())
	if len(cols) != 3 {
		t.Fatalf("columns = %d", len(cols))
	}
	got := [][]string{ids(cols[0].Tasks), ids(cols[1].Tasks), ids(cols[2].Tasks)}
	want := [][]string{{"1", "4"}, {"3"}, {"2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("board = %v", got)
	}
	if empty := Board(nil); empty[2].Tasks == nil {
		t.Fatal("empty lane should be non-nil")
	}
}

func TestDueState(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) models.Task {
		due := now.Add(d)
		return models.Task{DueDate: &due}
	}
	cases := []struct {
		task models.Task
		want Due
	}{
		{models.Task{}, DueNone},
		{at(-time.Minute), DueOverdue},
		{at(0), DueToday},
		{at(23 * time.Hour), DueToday},
		{at(24 * time.Hour), DueUpcoming},
		{at(72 * time.Hour), DueUpcoming},
	}
	for i, tc := range cases {
		if got := DueState(tc.task, now); got != tc.want {
			t.Errorf("case %d: got %s, want %s", i, got, tc.want)
		}
	}
}

func TestProgressAndPending(t *testing.T) {
	task := models.Task{Subtasks: []models.Subtask{{Completed: true}, {}, {}}}
	if got := Progress(task); got != 33 {
		t.Fatalf("progress = %d", got)
	}
	task.Subtasks[1].Completed = true
	if got := Progress(task); got != 67 {
		t.Fatalf("progress = %d", got)
	}
	if got := Progress(models.Task{}); got != 0 {
		t.Fatalf("progress without subtasks = %d", got)
	}
	if !Pending(models.Task{}) || Pending(models.Task{Excuses: []string{"a"}, Alternatives: []string{"b"}}) {
		t.Fatal("Pending misclassified")
	}
}

func TestFacets(t *testing.T) {
	f := Facets(sample())
	if !reflect.DeepEqual(f.Categories, []models.Category{models.CategoryFinance, models.CategoryHealth, models.CategoryWork}) {
		t.Fatalf("categories = %v", f.Categories)
	}
	if !reflect.DeepEqual(f.Tags, []string{"boss", "q1"}) {
		t.Fatalf("tags = %v", f.Tags)
	}
}

func newStore(t *testing.T) *tasks.Store {
	t.Helper()
	n := 0
	return tasks.Open(storage.NewAdapter(storage.NewMemoryKV(), nil),
		tasks.WithIDGenerator(func() string { n++; return fmt.Sprintf("id%d", n) }))
}

func TestCreateTwoDeleteFirst(t *testing.T) {
	s := newStore(t)
	first, _ := s.Create(models.Draft{Text: "first"})
	second, _ := s.Create(models.Draft{Text: "second"})
	_, _ = s.Remove(first)

	got := Apply(s.List().Tasks, Filter{Status: All})
	if len(got) != 1 || got[0].ID != second {
		t.Fatalf("got %v", ids(got))
	}
}

func TestLiveFollowsStoreAndFilter(t *testing.T) {
	s := newStore(t)
	_, _ = s.Create(models.Draft{Text: "a", Tags: []string{"x"}})

	live := NewLive(s, Filter{Tags: []string{"x"}})
	defer live.Close()
	var updates [][]string
	live.OnChange(func(ts []models.Task) { updates = append(updates, ids(ts)) })

	if got := ids(live.Current()); !reflect.DeepEqual(got, []string{"id1"}) {
		t.Fatalf("initial = %v", got)
	}
	_, _ = s.Create(models.Draft{Text: "b"})
	_, _ = s.Create(models.Draft{Text: "c", Tags: []string{"x"}})
	live.SetFilter(Filter{})

	want := [][]string{{"id1"}, {"id1", "id3"}, {"id1", "id2", "id3"}}
	if !reflect.DeepEqual(updates, want) {
		t.Fatalf("updates = %v", updates)
	}
	if live.Version() != 3 {
		t.Fatalf("version = %d", live.Version())
	}
}

type fakeSource struct {
	snap tasks.Snapshot
	fn   func(tasks.Snapshot)
}

func (f *fakeSource) List() tasks.Snapshot                     { return f.snap }
func (f *fakeSource) Subscribe(fn func(tasks.Snapshot)) func() { f.fn = fn; return func() {} }

func TestLiveIgnoresStaleSnapshots(t *testing.T) {
	src := &fakeSource{snap: tasks.Snapshot{Version: 5, Tasks: []models.Task{{ID: "new"}}}}
	live := NewLive(src, Filter{})

	src.fn(tasks.Snapshot{Version: 4, Tasks: []models.Task{{ID: "old"}}})
	if got := ids(live.Current()); !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("stale snapshot applied: %v", got)
	}
	src.fn(tasks.Snapshot{Version: 6, Tasks: []models.Task{{ID: "newer"}}})
	if got := ids(live.Current()); !reflect.DeepEqual(got, []string{"newer"}) {
		t.Fatalf("fresh snapshot ignored: %v", got)
	}
}
