package api

import (
	"encoding/json"
	"sync"

	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/util"
)

// SSE event names
const (
	EventCommit    = "commit"
	EventHighlight = "highlight"
)

// Event is one server-sent event.
type Event struct {
	Name string
	Data []byte
}

// commitEvent is the payload of a commit event.
type commitEvent struct {
	Topology string          `json:"topology"`
	Outcome  *router.Outcome `json:"outcome,omitempty"`
	Routes   int             `json:"routes"`
	Expired  int             `json:"leases_expired"`
}

const subscriberBuffer = 64

// Hub fans router commits and highlight changes out to SSE subscribers.
// Slow subscribers lose events rather than blocking the router.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that ends the
// subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast sends name with v encoded as JSON to every subscriber.
func (h *Hub) Broadcast(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		util.WithComponent("sse").WithError(err).Warn("encoding event failed")
		return
	}
	ev := Event{Name: name, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			util.WithComponent("sse").Debugf("subscriber %d is full, dropping %s event", id, name)
		}
	}
}

// Committed implements router.Observer.
func (h *Hub) Committed(c router.Commit) {
	h.Broadcast(EventCommit, commitEvent{
		Topology: c.Topology,
		Outcome:  c.Outcome,
		Routes:   c.Summary.Routes,
		Expired:  c.Summary.LeasesExpired,
	})
}

// Highlight forwards highlight changes; pass it to Highlighter.Subscribe.
func (h *Hub) Highlight(hl router.Highlight) {
	h.Broadcast(EventHighlight, hl)
}
