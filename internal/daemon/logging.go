package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogBufferSize is the default number of log entries to keep in memory
const LogBufferSize = 4096

// LogEntry represents a single captured log record
type LogEntry struct {
	Timestamp time.Time      `json:"ts"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogQuery filters entries returned by LogBuffer.Query
type LogQuery struct {
	Since *time.Time `json:"since,omitempty"`
	Level string     `json:"level,omitempty"` // this level and above
	Limit int        `json:"limit,omitempty"`
}

// LogBuffer is a thread-safe ring buffer of recent log entries, queried
// over IPC by `drowse logs`.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
	maxSize int
}

// NewLogBuffer creates a buffer with the given capacity
func NewLogBuffer(maxSize int) *LogBuffer {
	return &LogBuffer{
		entries: make([]LogEntry, maxSize),
		maxSize: maxSize,
	}
}

// Add appends a log entry, evicting the oldest when full
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.maxSize
	if b.count < b.maxSize {
		b.count++
	}
}

// Count returns the number of buffered entries
func (b *LogBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Query returns matching entries in chronological order
func (b *LogBuffer) Query(q LogQuery) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	minLevel := parseLevel(q.Level)

	start := 0
	if b.count == b.maxSize {
		start = b.head
	}

	results := make([]LogEntry, 0)
	for i := 0; i < b.count; i++ {
		entry := b.entries[(start+i)%b.maxSize]

		if q.Since != nil && entry.Timestamp.Before(*q.Since) {
			continue
		}
		if parseLevel(entry.Level) < minLevel {
			continue
		}

		results = append(results, entry)
		if q.Limit > 0 && len(results) >= q.Limit {
			break
		}
	}

	return results
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "", "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BufferedHandler is an slog.Handler that mirrors records into a
// LogBuffer before passing them to the wrapped handler.
type BufferedHandler struct {
	buffer *LogBuffer
	next   slog.Handler
	attrs  []slog.Attr
	group  string
}

// NewBufferedHandler creates a handler that captures logs to the buffer
func NewBufferedHandler(buffer *LogBuffer, next slog.Handler) *BufferedHandler {
	return &BufferedHandler{
		buffer: buffer,
		next:   next,
	}
}

func (h *BufferedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *BufferedHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any)

	for _, attr := range h.attrs {
		fields[attr.Key] = attr.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fields[key] = a.Value.Any()
		return true
	})

	if len(fields) == 0 {
		fields = nil
	}

	h.buffer.Add(LogEntry{
		Timestamp: r.Time,
		Level:     r.Level.String(),
		Message:   r.Message,
		Fields:    fields,
	})

	return h.next.Handle(ctx, r)
}

func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferedHandler{
		buffer: h.buffer,
		next:   h.next.WithAttrs(attrs),
		attrs:  append(h.attrs, attrs...),
		group:  h.group,
	}
}

func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}
	return &BufferedHandler{
		buffer: h.buffer,
		next:   h.next.WithGroup(name),
		attrs:  h.attrs,
		group:  newGroup,
	}
}
