package workflow

import (
	"sync"
	"time"
)

const (
	EventWalletConnected   = "wallet.connected"
	EventSessionChanged    = "session.changed"
	EventDispatcherChanged = "dispatcher.changed"
	EventDispatcherSet     = "dispatcher.set"
	EventPostPublished     = "post.published"
)

type Event struct {
	Seq       int64     `json:"seq"`
	Method    string    `json:"method"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub keeps a bounded history of workflow events and fans them out to
// subscribers. Slow subscribers are dropped.
type EventHub struct {
	mu      sync.Mutex
	nextSeq int64
	limit   int
	history []Event
	subs    map[int]chan Event
	nextSub int
}

func NewEventHub(limit int) *EventHub {
	if limit < 1 {
		limit = 1
	}
	return &EventHub{
		limit: limit,
		subs:  make(map[int]chan Event),
	}
}

func (h *EventHub) Publish(method string, payload any) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	event := Event{
		Seq:       h.nextSeq,
		Method:    method,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	h.history = append(h.history, event)
	if len(h.history) > h.limit {
		h.history = append([]Event(nil), h.history[len(h.history)-h.limit:]...)
	}

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
	return event
}

// Since returns the retained events with Seq greater than fromSeq.
func (h *EventHub) Since(fromSeq int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sinceLocked(fromSeq)
}

func (h *EventHub) sinceLocked(fromSeq int64) []Event {
	out := make([]Event, 0)
	for _, event := range h.history {
		if event.Seq > fromSeq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe returns the retained events after fromSeq and a channel that
// receives every later event. Replay and registration happen under one lock,
// so no event falls between them.
func (h *EventHub) Subscribe(fromSeq int64) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	replay := h.sinceLocked(fromSeq)
	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			close(sub)
			delete(h.subs, id)
		}
	}
	return replay, ch, cancel
}
