// File path: internal/api/logs_handler.go
package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
)

// handleLogs serves the captured log ring, oldest first. Optional filters:
// level, component, request_id and limit (most recent N).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	level := strings.ToLower(strings.TrimSpace(query.Get("level")))
	component := strings.TrimSpace(query.Get("component"))
	reqID := strings.TrimSpace(query.Get("request_id"))

	entries := common.LogEntries()
	filtered := make([]common.LogEntry, 0, len(entries))
	for _, entry := range entries {
		if level != "" && entry.Level != level {
			continue
		}
		if component != "" && entry.Component != component {
			continue
		}
		if reqID != "" && entry.RequestID != reqID {
			continue
		}
		filtered = append(filtered, entry)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time.Before(filtered[j].Time)
	})
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit >= 0 && limit < len(filtered) {
			filtered = filtered[len(filtered)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": filtered,
		"count":   len(filtered),
	})
}
