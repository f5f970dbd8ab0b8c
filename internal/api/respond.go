package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/tasks"
	"github.com/example/procrastinator/internal/view"
)

const maxBodySize = 1 << 20

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	respondJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps store and pipeline errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tasks.ErrNotFound), errors.Is(err, enrich.ErrUnknownTask):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrEmptyText), errors.Is(err, tasks.ErrTooManyTags),
		errors.Is(err, tasks.ErrInvalidTag), errors.Is(err, tasks.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrDuplicateID), errors.Is(err, enrich.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, enrich.ErrNoJSON), errors.Is(err, enrich.ErrMalformed), errors.Is(err, enrich.ErrServiceStatus):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// taskView is a task plus the fields a display derives from it.
type taskView struct {
	models.Task
	Due      view.Due     `json:"due"`
	Progress int          `json:"progress"`
	Pending  bool         `json:"pending"`
	Attempt  enrich.State `json:"enrichment"`
	Message  string       `json:"enrichmentMessage,omitempty"`
}

func (s *Server) present(t models.Task, now time.Time) taskView {
	a := s.orch.Pipeline.Attempt(t.ID)
	return taskView{
		Task:     t,
		Due:      view.DueState(t, now),
		Progress: view.Progress(t),
		Pending:  view.Pending(t),
		Attempt:  a.State,
		Message:  a.Message(),
	}
}

func (s *Server) presentAll(ts []models.Task) []taskView {
	now := s.now()
	out := make([]taskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, s.present(t, now))
	}
	return out
}
