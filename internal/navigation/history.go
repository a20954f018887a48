package navigation

import "sync"

// DefaultHistoryCapacity bounds the back-jump stack.
const DefaultHistoryCapacity = 16

// History is a bounded LIFO of jump origins. When full, pushing discards the
// oldest entry.
type History struct {
	mu    sync.Mutex
	items []Location
	head  int // index of the oldest entry
	n     int
}

// NewHistory creates a history holding at most capacity locations.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{items: make([]Location, capacity)}
}

// Push records loc as the most recent origin.
func (h *History) Push(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := len(h.items)
	if h.n == c {
		h.items[h.head] = loc
		h.head = (h.head + 1) % c
		return
	}
	h.items[(h.head+h.n)%c] = loc
	h.n++
}

// Pop removes and returns the most recent origin.
func (h *History) Pop() (Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n == 0 {
		return Location{}, false
	}
	h.n--
	i := (h.head + h.n) % len(h.items)
	loc := h.items[i]
	h.items[i] = Location{}
	return loc, true
}

// Len returns the number of stored origins.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.items)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.items {
		h.items[i] = Location{}
	}
	h.head, h.n = 0, 0
}
