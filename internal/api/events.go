package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/view"
)

const streamBuffer = 64

// handleEvents streams bus envelopes as server-sent events. A slow client loses
// events rather than holding up the bus.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch, stop := s.orch.Bus.Stream(streamBuffer)
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	fl.Flush()

	ping := time.NewTicker(s.keepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Kind, env.Marshal()); err != nil {
				return
			}
			fl.Flush()
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		}
	}
}

// handleWatch streams the filtered task list as server-sent "tasks" events: once on
// connect and again whenever the store changes. Changes that arrive while a write is
// pending collapse into one event carrying the latest list.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	f, err := view.ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	changed := make(chan struct{}, 1)
	live := view.NewLive(s.orch.Store, f)
	defer live.Close()
	stop := live.OnChange(func([]models.Task) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func() error {
		body, err := json.Marshal(map[string]any{
			"version": live.Version(),
			"tasks":   s.presentAll(live.Current()),
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: tasks\ndata: %s\n\n", body); err != nil {
			return err
		}
		fl.Flush()
		return nil
	}
	if send() != nil {
		return
	}

	ping := time.NewTicker(s.keepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			if send() != nil {
				return
			}
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			fl.Flush()
		}
	}
}
