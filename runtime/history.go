package runtime

import (
	"sync"

	"streamroom/domain/chat"
)

// History retains the last N broadcast messages for replay to new joiners.
// Capacity is fixed at construction; the oldest entry is silently evicted
// when a new one arrives at capacity.
type History struct {
	mu       sync.Mutex
	entries  []chat.Message
	start    int
	size     int
	capacity int
}

func NewHistory(capacity int) *History {
	return &History{
		entries:  make([]chat.Message, capacity),
		capacity: capacity,
	}
}

// Append inserts a message in O(1), overwriting the oldest entry when full.
func (h *History) Append(msg chat.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.capacity == 0 {
		return
	}
	if h.size < h.capacity {
		h.entries[(h.start+h.size)%h.capacity] = msg
		h.size++
		return
	}
	h.entries[h.start] = msg
	h.start = (h.start + 1) % h.capacity
}

// Snapshot returns a point-in-time copy of the retained messages,
// oldest first. Appends and snapshots exclude each other, so a reader
// never observes a partially updated ring.
func (h *History) Snapshot() []chat.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]chat.Message, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.entries[(h.start+i)%h.capacity]
	}
	return out
}
