package router

import (
	"sync"
	"time"

	"github.com/newtron-network/newtsim/pkg/model"
)

// Default highlight lifetimes
const (
	DefaultPathTTL  = 900 * time.Millisecond
	DefaultTraceTTL = 4 * time.Second
)

// Highlight is the traffic currently shown for a session. An empty Path and a
// nil Trace mean nothing is highlighted.
type Highlight struct {
	Kind  string             `json:"kind,omitempty"`
	Path  []string           `json:"path,omitempty"`
	Trace *model.PacketTrace `json:"trace,omitempty"`
}

// Empty reports whether nothing is highlighted.
func (h Highlight) Empty() bool {
	return len(h.Path) == 0 && h.Trace == nil
}

type stopper interface {
	Stop() bool
}

// Highlighter holds a single highlight slot. Starting a new highlight cancels
// the pending expiries of the previous one; the path and the trace expire
// independently.
type Highlighter struct {
	mu        sync.Mutex
	pathTTL   time.Duration
	traceTTL  time.Duration
	current   Highlight
	gen       uint64
	timers    []stopper
	listeners []func(Highlight)

	afterFunc func(d time.Duration, f func()) stopper
}

// NewHighlighter creates a highlighter; zero durations select the defaults.
func NewHighlighter(pathTTL, traceTTL time.Duration) *Highlighter {
	if pathTTL <= 0 {
		pathTTL = DefaultPathTTL
	}
	if traceTTL <= 0 {
		traceTTL = DefaultTraceTTL
	}
	return &Highlighter{
		pathTTL:  pathTTL,
		traceTTL: traceTTL,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Subscribe registers fn to receive every highlight change, including the
// expiries. fn runs outside the highlighter lock.
func (h *Highlighter) Subscribe(fn func(Highlight)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Current returns the active highlight.
func (h *Highlighter) Current() Highlight {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Start replaces the highlight slot with t and schedules its expiry.
func (h *Highlighter) Start(t *model.Traffic) {
	if t == nil {
		return
	}
	h.mu.Lock()
	h.cancelLocked()
	h.gen++
	gen := h.gen
	h.current = Highlight{Kind: t.Kind, Path: append([]string(nil), t.Path...), Trace: t.Trace}
	h.timers = append(h.timers,
		h.afterFunc(h.pathTTL, func() { h.expire(gen, true) }),
		h.afterFunc(h.traceTTL, func() { h.expire(gen, false) }),
	)
	snap, listeners := h.current, h.listeners
	h.mu.Unlock()

	notify(listeners, snap)
}

// expire clears the path or the trace of generation gen. Timers of a replaced
// generation are ignored.
func (h *Highlighter) expire(gen uint64, path bool) {
	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	if path {
		h.current.Path = nil
	} else {
		h.current.Trace = nil
	}
	if h.current.Empty() {
		h.current.Kind = ""
	}
	snap, listeners := h.current, h.listeners
	h.mu.Unlock()

	notify(listeners, snap)
}

// Stop cancels pending expiries and clears the slot.
func (h *Highlighter) Stop() {
	h.mu.Lock()
	h.cancelLocked()
	h.gen++
	wasEmpty := h.current.Empty()
	h.current = Highlight{}
	listeners := h.listeners
	h.mu.Unlock()

	if !wasEmpty {
		notify(listeners, Highlight{})
	}
}

func (h *Highlighter) cancelLocked() {
	for _, t := range h.timers {
		t.Stop()
	}
	h.timers = nil
}

func notify(listeners []func(Highlight), hl Highlight) {
	for _, fn := range listeners {
		fn(hl)
	}
}
