// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	completionTotal     *expvar.Map
	completionFailures  *expvar.Map
	completionLatencyMS *expvar.Map

	normalizeTotal    *expvar.Map
	normalizeFailures *expvar.Map

	insightTotal    *expvar.Map
	insightFailures *expvar.Map

	speechTotal    *expvar.Int
	speechFailures *expvar.Int
	speechBytes    *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		completionTotal = expvar.NewMap("loanjson_completion_total")
		completionFailures = expvar.NewMap("loanjson_completion_failures")
		completionLatencyMS = expvar.NewMap("loanjson_completion_latency_ms")

		normalizeTotal = expvar.NewMap("loanjson_normalize_total")
		normalizeFailures = expvar.NewMap("loanjson_normalize_failures")

		insightTotal = expvar.NewMap("loanjson_insight_total")
		insightFailures = expvar.NewMap("loanjson_insight_failures")

		speechTotal = expvar.NewInt("loanjson_speech_total")
		speechFailures = expvar.NewInt("loanjson_speech_failures")
		speechBytes = expvar.NewInt("loanjson_speech_bytes")
	})
}

func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

// RecordCompletion counts one call to a completion provider.
func RecordCompletion(provider string, duration time.Duration, err error) {
	ensureInit()
	key := normalizeKey(provider, "unknown")
	completionTotal.Add(key, 1)
	if err != nil {
		completionFailures.Add(key, 1)
	}
	if duration > 0 {
		completionLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordNormalize counts a finished normalization by outcome source
// ("passthrough" or "structured").
func RecordNormalize(source string) {
	ensureInit()
	normalizeTotal.Add(normalizeKey(source, "unknown"), 1)
}

// RecordNormalizeFailure counts a failed normalization by failure kind.
func RecordNormalizeFailure(kind string) {
	ensureInit()
	normalizeFailures.Add(normalizeKey(kind, "unexpected"), 1)
}

func RecordInsight(category string, err error) {
	ensureInit()
	key := normalizeKey(category, "unknown")
	insightTotal.Add(key, 1)
	if err != nil {
		insightFailures.Add(key, 1)
	}
}

func RecordSpeech(bytes int64, err error) {
	ensureInit()
	speechTotal.Add(1)
	if err != nil {
		speechFailures.Add(1)
		return
	}
	if bytes > 0 {
		speechBytes.Add(bytes)
	}
}

// Snapshot returns the current value of a counter map entry. It is mainly
// useful for tests and the overview endpoint.
func Snapshot(name, key string) int64 {
	ensureInit()
	var m *expvar.Map
	switch name {
	case "completion":
		m = completionTotal
	case "completion_failures":
		m = completionFailures
	case "normalize":
		m = normalizeTotal
	case "normalize_failures":
		m = normalizeFailures
	case "insight":
		m = insightTotal
	case "insight_failures":
		m = insightFailures
	default:
		return 0
	}
	if v, ok := m.Get(normalizeKey(key, "unknown")).(*expvar.Int); ok && v != nil {
		return v.Value()
	}
	return 0
}

func normalizeKey(value, fallback string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return fallback
	}
	return key
}
