package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/procrastinator/internal/models"
)

var (
	ErrEmptyText    = errors.New("task text is empty")
	ErrTooManyTags  = fmt.Errorf("a task can have at most %d tags", models.MaxTags)
	ErrInvalidTag   = errors.New("invalid tag")
	ErrInvalidField = errors.New("invalid field value")
	ErrDuplicateID  = errors.New("task id already used")
	ErrNotFound     = errors.New("task not found")
	ErrPersist      = errors.New("task collection not persisted")
)

// ValidateDraft is the boundary check the creation surface runs before anything is
// published. It returns the normalized draft.
func ValidateDraft(d models.Draft) (models.Draft, error) {
	d.Text = strings.TrimSpace(d.Text)
	if d.Text == "" {
		return d, ErrEmptyText
	}
	tags, err := NormalizeTags(d.Tags)
	if err != nil {
		return d, err
	}
	d.Tags = tags
	if d.Category != "" {
		c, ok := models.ParseCategory(string(d.Category))
		if !ok {
			return d, fmt.Errorf("%w: category %q", ErrInvalidField, d.Category)
		}
		d.Category = c
	}
	if d.Priority == "" {
		d.Priority = models.DefaultPriority
	} else if p, ok := models.ParsePriority(string(d.Priority)); ok {
		d.Priority = p
	} else {
		return d, fmt.Errorf("%w: priority %q", ErrInvalidField, d.Priority)
	}
	if d.Status == "" {
		d.Status = models.StatusNotStarted
	} else if !d.Status.Valid() {
		return d, fmt.Errorf("%w: status %q", ErrInvalidField, d.Status)
	}
	if d.EstimatedMinutes < 0 {
		return d, fmt.Errorf("%w: negative duration", ErrInvalidField)
	}
	return d, nil
}

// NormalizeTags trims, drops empties and duplicates, and enforces the cap.
func NormalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if strings.ContainsAny(tag, ",\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > models.MaxTags {
		return nil, ErrTooManyTags
	}
	return out, nil
}

func validEnrichment(e models.Enrichment) error {
	if len(e.Excuses) == 0 || len(e.Alternatives) == 0 {
		return fmt.Errorf("%w: enrichment must populate excuses and alternatives", ErrInvalidField)
	}
	if _, ok := models.ParseLevel(string(e.Level)); !ok {
		return fmt.Errorf("%w: level %q", ErrInvalidField, e.Level)
	}
	return nil
}
