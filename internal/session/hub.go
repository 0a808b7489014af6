package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type EventKind string

const (
	EventSignedUp  EventKind = "signed_up"
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Identity Identity  `json:"identity"`
	At       time.Time `json:"at"`
	// Origin is empty for events raised in this process and set to the
	// sending instance for events relayed from elsewhere.
	Origin string `json:"origin,omitempty"`
}

// Hub fans session events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	next   uint64
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[uint64]chan Event), buffer: buffer}
}

func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Uint64("subscriber", id).Str("kind", string(ev.Kind)).Msg("session: subscriber buffer full, event dropped")
		}
	}
}

// Subscribe registers a subscriber. The channel is closed when the returned
// cancel func is called or ctx ends, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// Listen subscribes and calls handle for every event until ctx ends.
func (h *Hub) Listen(ctx context.Context, handle func(context.Context, Event)) {
	events, cancel := h.Subscribe(ctx)
	defer cancel()
	for ev := range events {
		handle(ctx, ev)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
