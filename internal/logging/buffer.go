package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered record. Device and Control are lifted from the
// record's attributes so entries can be selected per camera.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Device     *int           `json:"device,omitempty"`
	Control    string         `json:"control,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogQuery selects buffered entries. Zero fields match everything.
type LogQuery struct {
	Module   string
	Device   *int
	Control  string
	MinLevel string
	// Limit keeps the newest matches.
	Limit int
}

func (q LogQuery) match(e LogEntry, min *int) bool {
	if q.Module != "" && e.Module != q.Module {
		return false
	}
	if q.Device != nil && (e.Device == nil || *e.Device != *q.Device) {
		return false
	}
	if q.Control != "" && e.Control != q.Control {
		return false
	}
	if min != nil {
		if l := parseLevel(e.Level); l != nil && int(*l) < *min {
			return false
		}
	}
	return true
}

// RingBuffer keeps the newest entries in memory.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write adds an entry, overwriting the oldest one when full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// each calls fn on every entry, oldest first, with the read lock held.
func (rb *RingBuffer) each(fn func(LogEntry)) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	start := 0
	if rb.count == len(rb.entries) {
		start = rb.head
	}
	for i := range rb.count {
		fn(rb.entries[(start+i)%len(rb.entries)])
	}
}

// ReadAll returns all entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Query(LogQuery{})
}

// Last returns up to n of the newest entries, oldest first. n <= 0 returns
// everything.
func (rb *RingBuffer) Last(n int) []LogEntry {
	return rb.Query(LogQuery{Limit: n})
}

// Query returns the matching entries, oldest first. An unknown MinLevel
// matches every level.
func (rb *RingBuffer) Query(q LogQuery) []LogEntry {
	var min *int
	if l := parseLevel(q.MinLevel); l != nil {
		v := int(*l)
		min = &v
	}

	var out []LogEntry
	rb.each(func(e LogEntry) {
		if q.match(e, min) {
			out = append(out, e)
		}
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Count returns the number of entries in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
