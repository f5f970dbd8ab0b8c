package tasks

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/procrastinator/internal/models"
)

// applyPatch validates every present field before touching t, so a rejected patch
// leaves the task as it was.
func applyPatch(t *models.Task, p models.Patch) error {
	next := t.Clone()

	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return ErrEmptyText
		}
		next.Text = text
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w: status %q", ErrInvalidField, *p.Status)
		}
		next.Status = *p.Status
	}
	if p.Category != nil {
		c, ok := models.ParseCategory(string(*p.Category))
		if !ok {
			return fmt.Errorf("%w: category %q", ErrInvalidField, *p.Category)
		}
		next.Category = c
	}
	if p.Priority != nil {
		pr, ok := models.ParsePriority(string(*p.Priority))
		if !ok {
			return fmt.Errorf("%w: priority %q", ErrInvalidField, *p.Priority)
		}
		next.Priority = pr
	}
	if p.SetTags {
		tags, err := NormalizeTags(p.Tags)
		if err != nil {
			return err
		}
		next.Tags = tags
	}
	if p.ClearDueDate {
		next.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		next.DueDate = &d
	}
	if p.EstimatedMinutes != nil {
		if *p.EstimatedMinutes < 0 {
			return fmt.Errorf("%w: negative duration", ErrInvalidField)
		}
		next.EstimatedMinutes = *p.EstimatedMinutes
	}
	if p.Enrichment != nil {
		e := *p.Enrichment
		if err := validEnrichment(e); err != nil {
			return err
		}
		level, _ := models.ParseLevel(string(e.Level))
		next.Excuses = slices.Clone(e.Excuses)
		next.Alternatives = slices.Clone(e.Alternatives)
		next.Level = level
		next.FavoriteExcuses = keepPresent(next.FavoriteExcuses, next.Excuses)
	}
	if p.SetFavorites {
		for _, f := range p.FavoriteExcuses {
			if !slices.Contains(next.Excuses, f) {
				return fmt.Errorf("%w: favourite %q is not one of the excuses", ErrInvalidField, f)
			}
		}
		next.FavoriteExcuses = keepPresent(p.FavoriteExcuses, next.Excuses)
	}
	if p.SetSubtasks {
		subs := make([]models.Subtask, 0, len(p.Subtasks))
		for _, st := range p.Subtasks {
			st.Text = strings.TrimSpace(st.Text)
			if st.Text == "" {
				return fmt.Errorf("%w: empty subtask", ErrInvalidField)
			}
			if st.ID == "" {
				st.ID = uuid.NewString()
			}
			subs = append(subs, st)
		}
		next.Subtasks = subs
	}

	*t = next
	return nil
}

// keepPresent returns the unique members of in that also appear in universe.
func keepPresent(in, universe []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if slices.Contains(universe, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mutate is update for user-driven changes, where an unknown id is an error.
func (s *Store) mutate(id string, fn func(t *models.Task) (bool, error)) error {
	found, err := s.update(id, fn)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) SetStatus(id string, st models.Status) error {
	if !st.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidField, st)
	}
	return s.mutate(id, func(t *models.Task) (bool, error) {
		if t.Status == st {
			return false, nil
		}
		t.Status = st
		return true, nil
	})
}

// ToggleCompleted flips between done and not started. An in-progress task becomes done.
func (s *Store) ToggleCompleted(id string) (models.Status, error) {
	var out models.Status
	err := s.mutate(id, func(t *models.Task) (bool, error) {
		if t.Status == models.StatusDone {
			t.Status = models.StatusNotStarted
		} else {
			t.Status = models.StatusDone
		}
		out = t.Status
		return true, nil
	})
	return out, err
}

func (s *Store) AddTag(id, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.ContainsAny(tag, ",\n") {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return s.mutate(id, func(t *models.Task) (bool, error) {
		if slices.Contains(t.Tags, tag) {
			return false, nil
		}
		if len(t.Tags) >= models.MaxTags {
			return false, ErrTooManyTags
		}
		t.Tags = append(t.Tags, tag)
		return true, nil
	})
}

func (s *Store) RemoveTag(id, tag string) error {
	tag = strings.TrimSpace(tag)
	return s.mutate(id, func(t *models.Task) (bool, error) {
		i := slices.Index(t.Tags, tag)
		if i < 0 {
			return false, nil
		}
		t.Tags = slices.Delete(t.Tags, i, i+1)
		return true, nil
	})
}

// ToggleFavoriteExcuse marks or unmarks one of the task's current excuses and
// reports whether it is now a favourite.
func (s *Store) ToggleFavoriteExcuse(id, excuse string) (bool, error) {
	var fav bool
	err := s.mutate(id, func(t *models.Task) (bool, error) {
		if !slices.Contains(t.Excuses, excuse) {
			return false, fmt.Errorf("%w: %q is not one of the excuses", ErrInvalidField, excuse)
		}
		if i := slices.Index(t.FavoriteExcuses, excuse); i >= 0 {
			t.FavoriteExcuses = slices.Delete(t.FavoriteExcuses, i, i+1)
			fav = false
		} else {
			t.FavoriteExcuses = append(t.FavoriteExcuses, excuse)
			fav = true
		}
		return true, nil
	})
	return fav, err
}

func (s *Store) AddSubtask(id, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty subtask", ErrInvalidField)
	}
	subID := uuid.NewString()
	err := s.mutate(id, func(t *models.Task) (bool, error) {
		t.Subtasks = append(t.Subtasks, models.Subtask{ID: subID, Text: text})
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return subID, nil
}

func (s *Store) ToggleSubtask(id, subID string) error {
	return s.mutate(id, func(t *models.Task) (bool, error) {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subID {
				t.Subtasks[i].Completed = !t.Subtasks[i].Completed
				return true, nil
			}
		}
		return false, fmt.Errorf("%w: subtask %s", ErrNotFound, subID)
	})
}

func (s *Store) RemoveSubtask(id, subID string) error {
	return s.mutate(id, func(t *models.Task) (bool, error) {
		i := slices.IndexFunc(t.Subtasks, func(st models.Subtask) bool { return st.ID == subID })
		if i < 0 {
			return false, nil
		}
		t.Subtasks = slices.Delete(t.Subtasks, i, i+1)
		return true, nil
	})
}

// Postpone pushes the due date back by d, counting from now when no due date is set.
func (s *Store) Postpone(id string, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, fmt.Errorf("%w: postpone by %s", ErrInvalidField, d)
	}
	var due time.Time
	err := s.mutate(id, func(t *models.Task) (bool, error) {
		base := s.now()
		if t.DueDate != nil {
			base = *t.DueDate
		}
		due = base.Add(d)
		t.DueDate = &due
		t.PostponeCount++
		return true, nil
	})
	return due, err
}
