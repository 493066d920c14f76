package common

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogEntryDerivesComponentFromPrefix(t *testing.T) {
	rec := slog.NewRecord(time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local), slog.LevelWarn, "normalize: falling back to structuring", 0)
	rec.AddAttrs(slog.String("file", "loan.json"), slog.Any("error", errors.New("boom")))

	entry := buildLogEntry(rec, nil)

	assert.Equal(t, "warn", entry.Level)
	assert.Equal(t, "normalize", entry.Component)
	assert.Equal(t, time.UTC, entry.Time.Location())
	require.NotNil(t, entry.Attributes)
	assert.Equal(t, "loan.json", entry.Attributes["file"])
	assert.Equal(t, "boom", entry.Attributes["error"])
}

func TestBuildLogEntryUsesInheritedAttributes(t *testing.T) {
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "request served", 0)
	inherited := []slog.Attr{slog.String("component", "api"), slog.String("request_id", "abc-123")}

	entry := buildLogEntry(rec, inherited)

	assert.Equal(t, "api", entry.Component)
	assert.Equal(t, "abc-123", entry.RequestID)
	assert.Nil(t, entry.Attributes)
}

func TestLogSinkKeepsMostRecentEntries(t *testing.T) {
	s := newLogSink(2)
	for _, msg := range []string{"one", "two", "three"} {
		s.capture(slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0), nil)
	}

	entries := s.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

type loanKey string

func (k loanKey) String() string { return "loan-" + string(k) }

func TestBuildLogEntryFlattensValues(t *testing.T) {
	rec := slog.NewRecord(time.Now(), slog.LevelDebug, "no prefix here", 0)
	rec.AddAttrs(
		slog.Any("loan", loanKey("7")),
		slog.Duration("dur", 1500*time.Millisecond),
		slog.Int("calls", 2),
	)

	entry := buildLogEntry(rec, nil)

	assert.Empty(t, entry.Component)
	assert.Equal(t, "loan-7", entry.Attributes["loan"])
	assert.Equal(t, "1.5s", entry.Attributes["dur"])
	assert.Equal(t, int64(2), entry.Attributes["calls"])
}

func TestLogSinkWrapsInOrder(t *testing.T) {
	s := newLogSink(3)
	assert.Nil(t, s.entries())
	for i := 0; i < 7; i++ {
		s.capture(slog.NewRecord(time.Now(), slog.LevelInfo, string(rune('a'+i)), 0), nil)
	}
	entries := s.entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"e", "f", "g"}, []string{entries[0].Message, entries[1].Message, entries[2].Message})
}
