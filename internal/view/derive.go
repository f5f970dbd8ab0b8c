package view

import (
	"math"
	"sort"
	"time"

	"github.com/example/procrastinator/internal/models"
)

// Column is one kanban lane.
type Column struct {
	Status models.Status `json:"status"`
	Tasks  []models.Task `json:"tasks"`
}

// Board groups tasks by status in lifecycle order, keeping display order inside each lane.
func Board(tasks []models.Task) []Column {
	cols := make([]Column, len(models.Statuses))
	idx := map[models.Status]int{}
	for i, st := range models.Statuses {
		cols[i] = Column{Status: st, Tasks: []models.Task{}}
		idx[st] = i
	}
	for _, t := range tasks {
		i, ok := idx[t.Status]
		if !ok {
			i = 0
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

type Due string

const (
	DueNone     Due = "none"
	DueOverdue  Due = "overdue"
	DueToday    Due = "due_today"
	DueUpcoming Due = "upcoming"
)

// DueState classifies the due date against now. "Today" means within the next 24 hours.
func DueState(t models.Task, now time.Time) Due {
	if t.DueDate == nil {
		return DueNone
	}
	switch d := t.DueDate.Sub(now); {
	case d < 0:
		return DueOverdue
	case d < 24*time.Hour:
		return DueToday
	}
	return DueUpcoming
}

// Progress is the rounded percentage of completed subtasks; 0 without subtasks.
func Progress(t models.Task) int {
	if len(t.Subtasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(t.Subtasks)) * 100))
}

// Pending reports whether the task still waits for enrichment.
func Pending(t models.Task) bool {
	return !t.Enriched()
}

// FacetSet holds the values a filter UI can offer.
type FacetSet struct {
	Categories []models.Category `json:"categories"`
	Tags       []string          `json:"tags"`
}

func Facets(tasks []models.Task) FacetSet {
	cats := map[models.Category]struct{}{}
	tags := map[string]struct{}{}
	for _, t := range tasks {
		if t.Category != "" {
			cats[t.Category] = struct{}{}
		}
		for _, tag := range t.Tags {
			tags[tag] = struct{}{}
		}
	}
	f := FacetSet{Categories: make([]models.Category, 0, len(cats)), Tags: make([]string, 0, len(tags))}
	for c := range cats {
		f.Categories = append(f.Categories, c)
	}
	for t := range tags {
		f.Tags = append(f.Tags, t)
	}
	sort.Slice(f.Categories, func(i, j int) bool { return f.Categories[i] < f.Categories[j] })
	sort.Strings(f.Tags)
	return f
}
