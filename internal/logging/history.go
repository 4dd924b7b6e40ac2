package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one recorded log line.
type Entry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// History keeps the most recent log entries in a fixed-size ring.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// NewHistory creates a history holding up to size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &History{entries: make([]Entry, size)}
}

// Add records an entry, dropping the oldest one when full.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.head] = e
	h.head = (h.head + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

// Entries returns the recorded entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, 0, h.count)
	start := 0
	if h.count == len(h.entries) {
		start = h.head
	}
	for i := range h.count {
		out = append(out, h.entries[(start+i)%len(h.entries)])
	}
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// HistoryHandler is a slog.Handler that records into a History.
type HistoryHandler struct {
	history *History
	level   slog.Leveler
	attrs   []slog.Attr
	groups  []string
}

// NewHistoryHandler creates a handler recording records at or above level.
func NewHistoryHandler(history *History, level slog.Leveler) *HistoryHandler {
	return &HistoryHandler{history: history, level: level}
}

// Enabled implements slog.Handler.
func (h *HistoryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *HistoryHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{
		Time:       r.Time,
		Level:      strings.ToLower(r.Level.String()),
		Module:     "app",
		Message:    r.Message,
		Attributes: make(map[string]any),
	}
	add := func(a slog.Attr) {
		if a.Key == "module" && len(h.groups) == 0 {
			e.Module = a.Value.String()
			return
		}
		flatten(e.Attributes, h.groups, a)
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(a)
		return true
	})
	h.history.Add(e)
	return nil
}

func flatten(dst map[string]any, groups []string, a slog.Attr) {
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		sub := append(append([]string{}, groups...), a.Key)
		for _, ga := range v.Group() {
			flatten(dst, sub, ga)
		}
	case slog.KindDuration:
		dst[key] = v.Duration().String()
	case slog.KindTime:
		dst[key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			dst[key] = err.Error()
		} else {
			dst[key] = v.Any()
		}
	default:
		dst[key] = v.Any()
	}
}

// WithAttrs implements slog.Handler.
func (h *HistoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

// WithGroup implements slog.Handler.
func (h *HistoryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}
