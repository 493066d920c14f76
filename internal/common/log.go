// File path: internal/common/log.go
package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultLogHistory = 1000

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	level      = new(slog.LevelVar)
	sink       = newLogSink(defaultLogHistory)
)

// LogEntry represents a captured log record emitted via the common logger.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Logger returns a singleton slog logger. The initial level comes from the
// LOG_LEVEL environment variable and can be changed later with SetLevel.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		level.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
		baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		handler := &capturingHandler{handler: baseHandler, sink: sink}
		logger = slog.New(handler)
	})
	return logger
}

// SetLevel adjusts the level of the shared logger. Unknown names map to info.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// ParseLevel maps a textual level to its slog equivalent.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntries returns a copy of the captured log entries.
func LogEntries() []LogEntry {
	if sink == nil {
		return nil
	}
	return sink.entries()
}

type capturingHandler struct {
	handler slog.Handler
	sink    *logSink
	attrs   []slog.Attr
}

func (h *capturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *capturingHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if h.sink != nil {
		h.sink.capture(record, h.attrs)
	}
	return err
}

func (h *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &capturingHandler{handler: h.handler.WithAttrs(attrs), sink: h.sink, attrs: merged}
}

func (h *capturingHandler) WithGroup(name string) slog.Handler {
	return &capturingHandler{handler: h.handler.WithGroup(name), sink: h.sink, attrs: h.attrs}
}

// logSink is a fixed-size ring of the most recent entries.
type logSink struct {
	mu    sync.RWMutex
	ring  []LogEntry
	next  int
	count int
}

func newLogSink(max int) *logSink {
	if max <= 0 {
		max = defaultLogHistory
	}
	return &logSink{ring: make([]LogEntry, max)}
}

func (s *logSink) capture(record slog.Record, inherited []slog.Attr) {
	entry := buildLogEntry(record, inherited)
	s.mu.Lock()
	s.ring[s.next] = entry
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	s.mu.Unlock()
}

// entries returns the buffered entries oldest first.
func (s *logSink) entries() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return nil
	}
	out := make([]LogEntry, 0, s.count)
	start := (s.next - s.count + len(s.ring)) % len(s.ring)
	for i := 0; i < s.count; i++ {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}

// buildLogEntry flattens a record. component and request_id are promoted to
// their own fields; when no component attribute is set, the "component:"
// prefix of the message is used.
func buildLogEntry(record slog.Record, inherited []slog.Attr) LogEntry {
	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	entry := LogEntry{
		Time:    when.UTC(),
		Level:   strings.ToLower(record.Level.String()),
		Message: record.Message,
	}
	add := func(a slog.Attr) bool {
		value := a.Value.Resolve()
		switch a.Key {
		case "component":
			entry.Component = strings.TrimSpace(value.String())
		case "request_id":
			entry.RequestID = strings.TrimSpace(value.String())
		default:
			if entry.Attributes == nil {
				entry.Attributes = make(map[string]interface{})
			}
			entry.Attributes[a.Key] = plainValue(value)
		}
		return true
	}
	for _, a := range inherited {
		add(a)
	}
	record.Attrs(add)

	if entry.Component == "" {
		if prefix, _, found := strings.Cut(entry.Message, ":"); found {
			entry.Component = strings.TrimSpace(prefix)
		}
	}
	return entry
}

// plainValue converts a slog value into something encoding/json renders
// readably.
func plainValue(v slog.Value) interface{} {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC()
	case slog.KindGroup:
		return v.String()
	case slog.KindAny:
		switch val := v.Any().(type) {
		case error:
			return val.Error()
		case fmt.Stringer:
			return val.String()
		default:
			return val
		}
	default:
		return v.Any()
	}
}
