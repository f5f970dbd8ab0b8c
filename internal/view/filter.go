// Package view derives display lists from task snapshots. Everything here except Live
// is a pure function of its arguments.
package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/example/procrastinator/internal/models"
)

// All is the sentinel that disables a criterion. The empty string does the same.
const All = "all"

type Filter struct {
	Status   models.Status   `json:"status,omitempty"`
	Category models.Category `json:"category,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
}

func unset(v string) bool { return v == "" || v == All }

// Match reports whether t passes every set criterion. A task must carry all of the
// required tags.
func (f Filter) Match(t models.Task) bool {
	if !unset(string(f.Status)) && t.Status != f.Status {
		return false
	}
	if !unset(string(f.Category)) && t.Category != f.Category {
		return false
	}
	if !unset(string(f.Priority)) && t.Priority != f.Priority {
		return false
	}
	for _, tag := range f.Tags {
		if !slices.Contains(t.Tags, tag) {
			return false
		}
	}
	return true
}

// Apply keeps the tasks that match f, in their original order. It never returns nil.
func Apply(tasks []models.Task, f Filter) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// ParseFilter reads a filter from query-string style values: status, category,
// priority, and tag (repeatable, or comma separated).
func ParseFilter(q map[string][]string) (Filter, error) {
	var f Filter
	first := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	if v := first("status"); !unset(strings.ToLower(v)) {
		st, ok := models.ParseStatus(v)
		if !ok {
			return Filter{}, fmt.Errorf("unknown status %q", v)
		}
		f.Status = st
	}
	if v := first("category"); !unset(strings.ToLower(v)) {
		c, ok := models.ParseCategory(v)
		if !ok {
			return Filter{}, fmt.Errorf("unknown category %q", v)
		}
		f.Category = c
	}
	if v := first("priority"); !unset(strings.ToLower(v)) {
		p, ok := models.ParsePriority(v)
		if !ok {
			return Filter{}, fmt.Errorf("unknown priority %q", v)
		}
		f.Priority = p
	}
	for _, key := range []string{"tag", "tags"} {
		for _, raw := range q[key] {
			for _, tag := range strings.Split(raw, ",") {
				tag = strings.TrimSpace(tag)
				if tag != "" && !slices.Contains(f.Tags, tag) {
					f.Tags = append(f.Tags, tag)
				}
			}
		}
	}
	return f, nil
}
