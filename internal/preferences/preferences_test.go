package preferences

import (
	"testing"

	"github.com/example/procrastinator/internal/events"
	"github.com/example/procrastinator/internal/models"
	"github.com/example/procrastinator/internal/storage"
)

func TestToneFollowsBusAndPersists(t *testing.T) {
	kv := storage.NewMemoryKV()
	a := storage.NewAdapter(kv, nil)
	bus := events.NewBus(nil)
	p := New(a, bus, nil)
	defer p.Close()

	if p.Tone() != models.DefaultTone {
		t.Fatalf("initial tone = %q", p.Tone())
	}
	if _, err := p.SetTone("SciFi"); err != nil {
		t.Fatalf("SetTone: %v", err)
	}
	if p.Tone() != models.ToneSciFi || a.LoadTone() != models.ToneSciFi {
		t.Fatalf("tone = %q, saved = %q", p.Tone(), a.LoadTone())
	}

	// another surface publishing directly is honoured too
	bus.Publish(events.ToneChanged{Tone: models.ToneCorporate})
	if p.Tone() != models.ToneCorporate {
		t.Fatalf("tone = %q", p.Tone())
	}

	again := New(a, events.NewBus(nil), nil)
	if again.Tone() != models.ToneCorporate {
		t.Fatalf("reloaded tone = %q", again.Tone())
	}
}

func TestInvalidToneIsRejected(t *testing.T) {
	a := storage.NewAdapter(storage.NewMemoryKV(), nil)
	bus := events.NewBus(nil)
	p := New(a, bus, nil)

	var seen int
	bus.Subscribe(events.Funcs{OnToneChanged: func(events.ToneChanged) { seen++ }})
	if _, err := p.SetTone("pirate"); err == nil {
		t.Fatal("expected error")
	}
	if seen != 0 {
		t.Fatal("invalid tone was published")
	}

	bus.Publish(events.ToneChanged{Tone: "pirate"})
	if p.Tone() != models.DefaultTone {
		t.Fatalf("tone = %q", p.Tone())
	}
}

func TestSaveFailureKeepsTone(t *testing.T) {
	kv := storage.NewMemoryKV()
	kv.SetFailWrites(true)
	bus := events.NewBus(nil)
	p := New(storage.NewAdapter(kv, nil), bus, nil)
	if _, err := p.SetTone("medieval"); err != nil {
		t.Fatal(err)
	}
	if p.Tone() != models.ToneMedieval {
		t.Fatalf("tone = %q", p.Tone())
	}
}
