package events

import (
	"encoding/json"
	"io"
	"log"
	"sync"
)

// Envelope is the JSON shape of an event outside the process (SSE).
type Envelope struct {
	Kind    Kind  `json:"kind"`
	Payload Event `json:"payload"`
}

func (e Envelope) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

type subscriber chan Envelope

// Bus is the process-wide publish/subscribe channel between the creation surface,
// the task store and any display surface. Construct one in main and pass it around.
type Bus struct {
	logger *log.Logger

	mu       sync.RWMutex
	nextID   int
	handlers []entry
	streams  map[subscriber]struct{}
}

type entry struct {
	id int
	h  Handler
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bus{logger: logger, streams: map[subscriber]struct{}{}}
}

// Subscribe registers h for every event. Handlers run synchronously on the
// publisher's goroutine, in subscription order.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, entry{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, e := range b.handlers {
				if e.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Stream returns a buffered channel receiving every event. Sends never block:
// when the buffer is full the event is dropped for that stream.
func (b *Bus) Stream(buffer int) (<-chan Envelope, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(subscriber, buffer)
	b.mu.Lock()
	b.streams[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.streams, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev at most once to each current subscriber.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers))
	for i, e := range b.handlers {
		hs[i] = e.h
	}
	env := Envelope{Kind: ev.Kind(), Payload: ev}
	for ch := range b.streams {
		select {
		case ch <- env:
		default:
			b.logger.Printf("stream full, dropped %s", ev.Kind())
		}
	}
	b.mu.RUnlock()

	for _, h := range hs {
		b.deliver(h, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("handler panic on %s: %v", ev.Kind(), r)
		}
	}()
	ev.Dispatch(h)
}
