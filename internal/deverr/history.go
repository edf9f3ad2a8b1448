package deverr

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 1000
	defaultHistoryKeep  = 500
	recentWindow        = time.Hour
)

// Record is one recorded failure.
type Record struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Time       time.Time      `json:"time"`
}

// Stats summarizes the history.
type Stats struct {
	Total      int          `json:"total"`
	Counts     map[Kind]int `json:"counts"`
	MostCommon Kind         `json:"most_common,omitempty"`
	Recent     int          `json:"recent"`
}

// History is a bounded, concurrency-safe list of recorded failures. When it
// grows past its limit the oldest entries are dropped, keeping the newest.
type History struct {
	mu       sync.Mutex
	entries  []Record
	limit    int
	keep     int
	now      func() time.Time
	logger   *slog.Logger
	onRecord func(Record)
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithLimit sets the size that triggers trimming and the size trimmed to.
func WithLimit(limit, keep int) HistoryOption {
	return func(h *History) {
		if limit > 0 && keep > 0 && keep <= limit {
			h.limit = limit
			h.keep = keep
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *History) { h.now = now }
}

// WithLogger logs every record at LogLevel(kind).
func WithLogger(logger *slog.Logger) HistoryOption {
	return func(h *History) { h.logger = logger }
}

// WithCallback is invoked after every record, outside the lock.
func WithCallback(fn func(Record)) HistoryOption {
	return func(h *History) { h.onRecord = fn }
}

// NewHistory creates an empty history holding at most 1000 records.
func NewHistory(opts ...HistoryOption) *History {
	h := &History{
		limit: defaultHistoryLimit,
		keep:  defaultHistoryKeep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record classifies err and stores it. A nil err records nothing.
func (h *History) Record(err error, fields map[string]any) (Record, bool) {
	if err == nil {
		return Record{}, false
	}

	kind := KindOf(err)
	rec := Record{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    UserMessage(err),
		Detail:     err.Error(),
		Suggestion: Suggestion(kind),
		Context:    mergeContext(err, fields),
		Time:       h.now(),
	}

	h.mu.Lock()
	h.entries = append(h.entries, rec)
	if len(h.entries) > h.limit {
		h.entries = append([]Record(nil), h.entries[len(h.entries)-h.keep:]...)
	}
	callback := h.onRecord
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Log(context.Background(), LogLevel(kind), "device error recorded",
			"kind", kind, "error", err)
	}
	if callback != nil {
		callback(rec)
	}
	return rec, true
}

// Entries returns a copy of the records, oldest first.
func (h *History) Entries() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops every record.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// Stats counts records per kind. Ties for the most common kind go to the
// kind listed first in Kinds.
func (h *History) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := Stats{
		Total:  len(h.entries),
		Counts: make(map[Kind]int),
	}
	cutoff := h.now().Add(-recentWindow)
	for _, rec := range h.entries {
		stats.Counts[rec.Kind]++
		if rec.Time.After(cutoff) {
			stats.Recent++
		}
	}

	best := 0
	for _, kind := range Kinds {
		if n := stats.Counts[kind]; n > best {
			best = n
			stats.MostCommon = kind
		}
	}
	return stats
}

func mergeContext(err error, extra map[string]any) map[string]any {
	var e *Error
	hasOwn := errors.As(err, &e) && len(e.Context) > 0
	if !hasOwn && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any)
	if hasOwn {
		maps.Copy(out, e.Context)
	}
	maps.Copy(out, extra)
	return out
}
