// Package preferences holds the user's narrative tone. The bus is the only way to
// change it, so every surface that cares sees the same ToneChanged event.
package preferences

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/models"
)

// ToneStore persists the tone; storage.Adapter implements it.
type ToneStore interface {
	LoadTone() models.Tone
	SaveTone(models.Tone) error
}

type Preferences struct {
	store  ToneStore
	bus    *events.Bus
	logger *log.Logger

	mu    sync.RWMutex
	tone  models.Tone
	unsub func()
}

// New loads the saved tone and starts following ToneChanged on bus.
func New(store ToneStore, bus *events.Bus, logger *log.Logger) *Preferences {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &Preferences{store: store, bus: bus, logger: logger, tone: store.LoadTone()}
	p.unsub = bus.Subscribe(events.Funcs{OnToneChanged: p.apply})
	return p
}

func (p *Preferences) Tone() models.Tone {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tone
}

// SetTone validates t and publishes ToneChanged; the change itself happens when the
// event comes back.
func (p *Preferences) SetTone(t string) (models.Tone, error) {
	tone, ok := models.ParseTone(t)
	if !ok {
		return "", fmt.Errorf("unknown tone %q (want one of %v)", t, models.Tones)
	}
	p.bus.Publish(events.ToneChanged{Tone: tone})
	return tone, nil
}

func (p *Preferences) apply(e events.ToneChanged) {
	tone, ok := models.ParseTone(string(e.Tone))
	if !ok {
		p.logger.Printf("ignoring unknown tone %q", e.Tone)
		return
	}
	p.mu.Lock()
	p.tone = tone
	p.mu.Unlock()
	if err := p.store.SaveTone(tone); err != nil {
		p.logger.Printf("tone %s not saved: %v", tone, err)
	}
}

// Close stops following the bus.
func (p *Preferences) Close() {
	p.unsub()
}
