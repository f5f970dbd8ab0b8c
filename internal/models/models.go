package models

import (
	"strings"
	"time"
)

// MaxTags caps the tag set of a single task.
const MaxTags = 5

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the lifecycle states in board order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the current encoding plus the legacy board column names.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_started", "todo", "not-started", "not started", "pending":
		return StatusNotStarted, true
	case "in_progress", "in-progress", "in progress", "doing":
		return StatusInProgress, true
	case "done", "completed", "complete":
		return StatusDone, true
	}
	return "", false
}

type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryStudy    Category = "Study"
	CategoryHealth   Category = "Health"
	CategoryFinance  Category = "Finance"
	CategoryHome     Category = "Home"
	CategoryOther    Category = "Other"
)

var Categories = []Category{
	CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth,
	CategoryFinance, CategoryHome, CategoryOther,
}

// ParseCategory matches case-insensitively. The empty string is a valid "no category".
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is what a draft gets when the creation surface leaves it unset.
const DefaultPriority = PriorityLow

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	}
	return "", false
}

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelExpert       Level = "Expert"
)

// ParseLevel normalizes "Advanced" to Expert; both spellings appear in stored data.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return LevelBeginner, true
	case "intermediate":
		return LevelIntermediate, true
	case "expert", "advanced":
		return LevelExpert, true
	}
	return "", false
}

// Tone selects the narrative voice used for generation.
type Tone string

const (
	ToneCorporate  Tone = "corporate"
	ToneUniversity Tone = "university"
	TonePersonal   Tone = "personal"
	ToneSciFi      Tone = "scifi"
	ToneMedieval   Tone = "medieval"
)

const DefaultTone = TonePersonal

var Tones = []Tone{ToneCorporate, ToneUniversity, TonePersonal, ToneSciFi, ToneMedieval}

func ParseTone(s string) (Tone, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tones {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	CreatedAt        time.Time  `json:"createdAt"`
	Status           Status     `json:"status"`
	Category         Category   `json:"category,omitempty"`
	Priority         Priority   `json:"priority"`
	Tags             []string   `json:"tags"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	Excuses          []string   `json:"excuses"`
	Alternatives     []string   `json:"alternatives"`
	Level            Level      `json:"level,omitempty"`
	FavoriteExcuses  []string   `json:"favoriteExcuses,omitempty"`
	Subtasks         []Subtask  `json:"subtasks,omitempty"`
	EstimatedMinutes int        `json:"estimatedDuration,omitempty"`
	PostponeCount    int        `json:"postponeCount,omitempty"`
}

// Enriched reports whether the generated fields have been populated.
func (t Task) Enriched() bool {
	return len(t.Excuses) > 0 && len(t.Alternatives) > 0
}

// Clone returns a deep copy; snapshots handed to callers never share slices with the store.
func (t Task) Clone() Task {
	c := t
	c.Tags = cloneStrings(t.Tags)
	c.Excuses = cloneStrings(t.Excuses)
	c.Alternatives = cloneStrings(t.Alternatives)
	c.FavoriteExcuses = cloneStrings(t.FavoriteExcuses)
	if t.Subtasks != nil {
		c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}

// Enrichment is one resolved generation result. Its three fields travel together.
type Enrichment struct {
	Excuses      []string `json:"excuses"`
	Alternatives []string `json:"alternatives"`
	Level        Level    `json:"level"`
}

// Draft is what a creation surface hands over before the task exists.
type Draft struct {
	Text             string     `json:"text"`
	Category         Category   `json:"category,omitempty"`
	Priority         Priority   `json:"priority,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	Status           Status     `json:"status,omitempty"`
	EstimatedMinutes int        `json:"estimatedDuration,omitempty"`
}

// Patch carries only the fields a merge should replace; nil means "leave as is".
type Patch struct {
	Text             *string
	Status           *Status
	Category         *Category
	Priority         *Priority
	Tags             []string
	SetTags          bool
	DueDate          *time.Time
	ClearDueDate     bool
	Enrichment       *Enrichment
	FavoriteExcuses  []string
	SetFavorites     bool
	Subtasks         []Subtask
	SetSubtasks      bool
	EstimatedMinutes *int
}

func (p Patch) Empty() bool {
	return p.Text == nil && p.Status == nil && p.Category == nil && p.Priority == nil &&
		!p.SetTags && p.DueDate == nil && !p.ClearDueDate && p.Enrichment == nil &&
		!p.SetFavorites && !p.SetSubtasks && p.EstimatedMinutes == nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
