// File path: internal/loan/timeline.go
package loan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the ISO-8601 variants found in LoanJSON documents.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortTimeline returns a copy of events ordered newest first. Events whose
// date cannot be parsed keep their relative order at the end.
func SortTimeline(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := ParseDate(string(out[i].Date))
		tj, okJ := ParseDate(string(out[j].Date))
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI:
			return true
		default:
			return false
		}
	})
	return out
}

// TimelineSummary holds the counters shown next to the event timeline.
type TimelineSummary struct {
	TotalEvents     int  `json:"total_events"`
	Amendments      int  `json:"amendments"`
	Breaches        int  `json:"breaches"`
	DaysSinceOrigin *int `json:"days_since_origin,omitempty"`
}

func SummarizeTimeline(events []Event, now time.Time) TimelineSummary {
	summary := TimelineSummary{TotalEvents: len(events)}
	originFound := false
	for _, ev := range events {
		switch strings.ToLower(strings.TrimSpace(string(ev.Type))) {
		case EventAmendment:
			summary.Amendments++
		case EventBreach:
			summary.Breaches++
		case EventOrigination:
			if originFound {
				continue
			}
			originFound = true
			if t, ok := ParseDate(string(ev.Date)); ok {
				days := int(now.Sub(t).Hours() / 24)
				summary.DaysSinceOrigin = &days
			}
		}
	}
	return summary
}

// DownloadFileName is the file name used when a record is exported.
func DownloadFileName(loanID string, now time.Time) string {
	id := strings.TrimSpace(loanID)
	if id == "" {
		id = "unknown"
	}
	id = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
	return fmt.Sprintf("loan-%s-%d.json", id, now.UnixMilli())
}
