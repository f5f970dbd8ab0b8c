package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UnmarshalJSON reads both the current layout and the older ones still found in local
// storage: numeric ids, a boolean "completed" flag instead of status, board column
// names as statuses, "due" instead of "dueDate" and date-only due strings. Unknown
// enum values fall back to defaults; only a missing or malformed id is an error.
func (t *Task) UnmarshalJSON(b []byte) error {
	type alias Task
	var raw struct {
		alias
		ID        json.RawMessage `json:"id"`
		Status    string          `json:"status"`
		Completed *bool           `json:"completed"`
		Category  string          `json:"category"`
		Priority  string          `json:"priority"`
		Level     string          `json:"level"`
		DueDate   json.RawMessage `json:"dueDate"`
		Due       json.RawMessage `json:"due"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Task(raw.alias)

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	t.ID = id

	switch {
	case raw.Status != "":
		if s, ok := ParseStatus(raw.Status); ok {
			t.Status = s
		} else {
			t.Status = StatusNotStarted
		}
	case raw.Completed != nil && *raw.Completed:
		t.Status = StatusDone
	default:
		t.Status = StatusNotStarted
	}

	if c, ok := ParseCategory(raw.Category); ok {
		t.Category = c
	} else {
		t.Category = CategoryOther
	}
	if p, ok := ParsePriority(raw.Priority); ok {
		t.Priority = p
	} else {
		t.Priority = DefaultPriority
	}
	if raw.Level != "" {
		if l, ok := ParseLevel(raw.Level); ok {
			t.Level = l
		}
	}

	due := raw.DueDate
	if isNull(due) {
		due = raw.Due
	}
	// An unreadable due date is dropped rather than failing the record.
	t.DueDate, _ = decodeDate(due)
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", fmt.Errorf("task id missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("task id: %w", err)
	}
	return n.String(), nil
}

func decodeDate(raw json.RawMessage) (*time.Time, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("due date: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if d, err := time.Parse(layout, s); err == nil {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("due date: unrecognized format %q", s)
}

func isNull(raw json.RawMessage) bool {
	r := bytes.TrimSpace(raw)
	return len(r) == 0 || bytes.Equal(r, []byte("null"))
}
