// File path: internal/api/loans_handler.go
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

var errCatalogUnavailable = errors.New("loan catalog unavailable")

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, errCatalogUnavailable)
		return
	}
	query := r.URL.Query()
	opts := sqlite.ListOptions{
		Sector:       strings.TrimSpace(query.Get("sector")),
		BreachedOnly: query.Get("breached") == "true",
	}
	if raw := strings.TrimSpace(query.Get("max_health")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid max_health: %w", err))
			return
		}
		opts.MaxHealth = &value
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid %s %q", name, raw))
			return
		}
		*dst = value
	}
	rows, err := s.catalog.ListLoans(r.Context(), opts)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loanListResponse{Loans: rows, Count: len(rows)})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadLoan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, loanResponse{LoanRow: *row, Data: json.RawMessage(row.Data)})
}

func (s *Server) handleLoanOverview(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadLoan(w, r)
	if !ok {
		return
	}
	rec, err := loan.Decode([]byte(row.Data))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	audit, err := s.catalog.AuditTrail(r.Context(), row.LoanID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	now := time.Now()
	score := rec.RiskEngine.HealthScore.Float()
	writeJSON(w, http.StatusOK, loanOverview{
		LoanID:          rec.LoanID.String(),
		Borrower:        rec.Borrower,
		LoanTerms:       rec.LoanTerms,
		HealthScore:     score,
		Trend:           rec.RiskEngine.Trend.String(),
		Risk:            loan.AssessRisk(score),
		Covenants:       loan.CovenantStats(rec),
		Timeline:        loan.SortTimeline(rec.Timeline),
		TimelineSummary: loan.SummarizeTimeline(rec.Timeline, now),
		Audit:           audit,
		DownloadName:    loan.DownloadFileName(rec.LoanID.String(), now),
	})
}

func (s *Server) handleLoanDownload(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadLoan(w, r)
	if !ok {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(row.Data), "", "  "); err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	name := loan.DownloadFileName(row.LoanID, time.Now())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pretty.Bytes())
}

func (s *Server) loadLoan(w http.ResponseWriter, r *http.Request) (*sqlite.LoanRow, bool) {
	if s.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, errCatalogUnavailable)
		return nil, false
	}
	loanID := strings.TrimSpace(chi.URLParam(r, "loanID"))
	if loanID == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("loan id required"))
		return nil, false
	}
	row, err := s.catalog.GetLoan(r.Context(), loanID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sqlite.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, r, status, err)
		return nil, false
	}
	return row, true
}
