// Package api exposes the task store, the enrichment pipeline and the tone preference
// over HTTP, plus a server-sent event stream of the bus.
package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/example/procrastinator/internal/enrich"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/orchestrator"
	"github.com/example/procrastinator/internal/tasks"
	"github.com/example/procrastinator/internal/view"
)

type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	// Generator serves POST /api/generate. Nil disables the route.
	Generator   enrich.Generator
	Logger      *log.Logger
	CORSOrigins []string
	Now         func() time.Time
	// KeepAlive is the SSE comment interval; zero means 15s.
	KeepAlive time.Duration
}

type Server struct {
	orch      *orchestrator.Orchestrator
	gen       enrich.Generator
	logger    *log.Logger
	origins   []string
	now       func() time.Time
	keepAlive time.Duration
}

func NewServer(d Deps) *Server {
	s := &Server{
		orch:      d.Orchestrator,
		gen:       d.Generator,
		logger:    d.Logger,
		origins:   d.CORSOrigins,
		now:       d.Now,
		keepAlive: d.KeepAlive,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.keepAlive <= 0 {
		s.keepAlive = 15 * time.Second
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// RegisterRoutes adds every route to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/generate", s.handleGenerate)

	mux.HandleFunc("GET /tasks", s.handleList)
	mux.HandleFunc("POST /tasks", s.handleCreate)
	mux.HandleFunc("GET /tasks/watch", s.handleWatch)
	mux.HandleFunc("GET /tasks/{id}", s.handleGet)
	mux.HandleFunc("PATCH /tasks/{id}", s.handlePatch)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDelete)
	mux.HandleFunc("POST /tasks/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /tasks/{id}/complete", s.handleToggleCompleted)
	mux.HandleFunc("POST /tasks/{id}/postpone", s.handlePostpone)
	mux.HandleFunc("POST /tasks/{id}/tags", s.handleAddTag)
	mux.HandleFunc("DELETE /tasks/{id}/tags/{tag}", s.handleRemoveTag)
	mux.HandleFunc("POST /tasks/{id}/favorites", s.handleFavorite)
	mux.HandleFunc("POST /tasks/{id}/subtasks", s.handleAddSubtask)
	mux.HandleFunc("POST /tasks/{id}/subtasks/{sub}/toggle", s.handleToggleSubtask)
	mux.HandleFunc("DELETE /tasks/{id}/subtasks/{sub}", s.handleRemoveSubtask)

	mux.HandleFunc("GET /board", s.handleBoard)
	mux.HandleFunc("GET /facets", s.handleFacets)
	mux.HandleFunc("GET /tone", s.handleGetTone)
	mux.HandleFunc("PUT /tone", s.handleSetTone)
	mux.HandleFunc("GET /events", s.handleEvents)
}

// Handler returns the routes wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(mux)
}

// settled treats a failed write-through as success: memory already holds the change
// and the next successful write catches the file up.
func (s *Server) settled(err error) error {
	if err != nil && errors.Is(err, tasks.ErrPersist) {
		s.logger.Printf("%v", err)
		return nil
	}
	return err
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	respondError(w, code, err.Error())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		respondError(w, http.StatusNotImplemented, "generation is not configured")
		return
	}
	var req enrich.Request
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Task) == "" {
		respondError(w, http.StatusBadRequest, "Task is required")
		return
	}
	if req.Tone == "" {
		req.Tone = models.DefaultTone
	}
	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		s.logger.Printf("generate %q: %v", req.Task, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate excuses")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := view.ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.orch.Store.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"version": snap.Version,
		"tasks":   s.presentAll(view.Apply(snap.Tasks, f)),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var d models.Draft
	if err := decodeJSON(r, &d); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.orch.Submit(r.Context(), d)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.orch.Store.Get(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	respondJSON(w, http.StatusOK, s.present(t, s.now()))
}

type patchRequest struct {
	Text             *string          `json:"text"`
	Status           *string          `json:"status"`
	Category         *models.Category `json:"category"`
	Priority         *models.Priority `json:"priority"`
	Tags             *[]string        `json:"tags"`
	DueDate          *string          `json:"dueDate"`
	EstimatedMinutes *int             `json:"estimatedDuration"`
}

func (p patchRequest) toPatch() (models.Patch, error) {
	out := models.Patch{
		Text:             p.Text,
		Category:         p.Category,
		Priority:         p.Priority,
		EstimatedMinutes: p.EstimatedMinutes,
	}
	if p.Status != nil {
		st, ok := models.ParseStatus(*p.Status)
		if !ok {
			return out, fmt.Errorf("%w: status %q", tasks.ErrInvalidField, *p.Status)
		}
		out.Status = &st
	}
	if p.Tags != nil {
		out.Tags, out.SetTags = *p.Tags, true
	}
	if p.DueDate != nil {
		if *p.DueDate == "" {
			out.ClearDueDate = true
		} else {
			due, err := parseDate(*p.DueDate)
			if err != nil {
				return out, err
			}
			out.DueDate = &due
		}
	}
	return out, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", tasks.ErrInvalidField, v)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := req.toPatch()
	if err != nil {
		s.fail(w, err)
		return
	}
	found, err := s.orch.Store.Merge(id, p)
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	found, err := s.orch.Delete(r.PathValue("id"))
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.Regenerate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleToggleCompleted(w http.ResponseWriter, r *http.Request) {
	st, err := s.orch.Store.ToggleCompleted(r.PathValue("id"))
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]models.Status{"status": st})
}

func (s *Server) handlePostpone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hours int `json:"hours"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Hours <= 0 {
		respondError(w, http.StatusBadRequest, "hours must be a positive number")
		return
	}
	due, err := s.orch.Store.Postpone(r.PathValue("id"), time.Duration(req.Hours)*time.Hour)
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]time.Time{"dueDate": due})
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag string `json:"tag"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.settled(s.orch.Store.AddTag(r.PathValue("id"), req.Tag)); err != nil {
		s.fail(w, err)
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	if err := s.settled(s.orch.Store.RemoveTag(r.PathValue("id"), r.PathValue("tag"))); err != nil {
		s.fail(w, err)
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Excuse string `json:"excuse"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fav, err := s.orch.Store.ToggleFavoriteExcuse(r.PathValue("id"), req.Excuse)
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	subID, err := s.orch.Store.AddSubtask(r.PathValue("id"), req.Text)
	if err = s.settled(err); err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": subID})
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	if err := s.settled(s.orch.Store.ToggleSubtask(r.PathValue("id"), r.PathValue("sub"))); err != nil {
		s.fail(w, err)
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleRemoveSubtask(w http.ResponseWriter, r *http.Request) {
	if err := s.settled(s.orch.Store.RemoveSubtask(r.PathValue("id"), r.PathValue("sub"))); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	f, err := view.ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, view.Board(view.Apply(s.orch.Store.List().Tasks, f)))
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, view.Facets(s.orch.Store.List().Tasks))
}

func (s *Server) handleGetTone(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"tone": s.orch.Prefs.Tone(), "tones": models.Tones})
}

func (s *Server) handleSetTone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tone string `json:"tone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tone, err := s.orch.Prefs.SetTone(req.Tone)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]models.Tone{"tone": tone})
}
