package routes

import (
	"context"
	"slices"
	"sync"
)

// History is an in-memory navigation stack. It satisfies goSession.Navigator.
type History struct {
	mu      sync.Mutex
	entries []string
	notify  chan struct{}
}

// NewHistory returns a history positioned at start. An empty start leaves the
// history empty.
func NewHistory(start string) *History {
	h := &History{notify: make(chan struct{})}
	if start != "" {
		h.entries = append(h.entries, start)
	}
	return h
}

// Navigate pushes p. Navigation is never refused.
func (h *History) Navigate(_ context.Context, p string) {
	h.mu.Lock()
	h.entries = append(h.entries, p)
	close(h.notify)
	h.notify = make(chan struct{})
	h.mu.Unlock()
}

// Current returns the top of the stack, or "" when nothing was visited.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns a copy of the stack, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

// Count returns how many times p was navigated to, including the start.
func (h *History) Count(p string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.entries {
		if e == p {
			n++
		}
	}
	return n
}

// WaitFor blocks until the current entry is p or ctx is done.
func (h *History) WaitFor(ctx context.Context, p string) error {
	for {
		h.mu.Lock()
		current := ""
		if len(h.entries) > 0 {
			current = h.entries[len(h.entries)-1]
		}
		ch := h.notify
		h.mu.Unlock()

		if current == p {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
