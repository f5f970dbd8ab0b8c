package events

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/example/procrastinator/internal/models"
)

func TestStreamDropsWhenFull(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(log.New(&logs, "", 0))
	ch, cancel := bus.Stream(1)
	defer cancel()

	for _, tone := range []models.Tone{models.ToneCorporate, models.ToneSciFi, models.ToneMedieval} {
		bus.Publish(ToneChanged{Tone: tone})
	}

	if n := len(ch); n != 1 {
		t.Fatalf("queued = %d, want 1", n)
	}
	env := <-ch
	if env.Kind != KindToneChanged || env.Payload.(ToneChanged).Tone != models.ToneCorporate {
		t.Fatalf("envelope = %+v", env)
	}
	if got := strings.Count(logs.String(), "stream full"); got != 2 {
		t.Fatalf("drop log lines = %d:\n%s", got, logs.String())
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(log.New(&logs, "", 0))
	bus.Subscribe(Funcs{OnTaskCreated: func(TaskCreated) { panic("boom") }})
	var got []string
	bus.Subscribe(Funcs{OnTaskCreated: func(e TaskCreated) { got = append(got, e.ID) }})

	bus.Publish(TaskCreated{ID: "t1", Text: "Water plants"})

	if len(got) != 1 || got[0] != "t1" {
		t.Fatalf("second handler got %v", got)
	}
	if !strings.Contains(logs.String(), "handler panic on task_created: boom") {
		t.Fatalf("logs = %q", logs.String())
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus(nil)
	var firstCalls, secondCalls int
	var unsubFirst, unsubSecond func()
	unsubFirst = bus.Subscribe(Funcs{OnToneChanged: func(ToneChanged) {
		firstCalls++
		unsubFirst()
		unsubSecond()
	}})
	unsubSecond = bus.Subscribe(Funcs{OnToneChanged: func(ToneChanged) { secondCalls++ }})

	bus.Publish(ToneChanged{Tone: models.ToneSciFi})
	bus.Publish(ToneChanged{Tone: models.TonePersonal})

	// The first publish was already under way for both handlers.
	if firstCalls != 1 || secondCalls != 1 {
		t.Fatalf("calls = %d, %d", firstCalls, secondCalls)
	}
	unsubFirst()
	unsubSecond()
}

func TestStreamCancelIsIdempotent(t *testing.T) {
	bus := NewBus(nil)
	ch, cancel := bus.Stream(4)
	cancel()
	cancel()

	bus.Publish(TaskEnriched{ID: "t1"})
	if _, ok := <-ch; ok {
		t.Fatal("cancelled stream still delivering")
	}

	other, stop := bus.Stream(4)
	defer stop()
	bus.Publish(TaskEnriched{ID: "t2"})
	if env := <-other; env.Payload.(TaskEnriched).ID != "t2" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestEnvelopeMarshal(t *testing.T) {
	env := Envelope{Kind: KindTaskEnriched, Payload: TaskEnriched{
		ID: "t1", Excuses: []string{"a"}, Alternatives: []string{"b"}, Level: models.LevelBeginner,
	}}
	var got struct {
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(env.Marshal(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Kind != "task_enriched" || got.Payload["id"] != "t1" || got.Payload["level"] != "Beginner" {
		t.Fatalf("decoded = %+v", got)
	}
}
