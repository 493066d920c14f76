// File path: internal/api/insight_handler.go
package api

import (
	"errors"
	"net/http"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/insight"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

const (
	msgInvalidInsightType   = "Invalid insight type"
	msgInvalidLoanData      = "Invalid loan data"
	msgInsightNotConfigured = "API key not configured. Please configure the completion provider credentials."
	msgInsightFailed        = "Failed to generate AI insight. Please check your API configuration."
)

func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	logger := loggerFor(r)
	var req insightRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, decodeStatus(err), err)
		return
	}
	category, err := insight.ParseCategory(req.InsightType)
	if err != nil {
		writeFailure(w, r, http.StatusBadRequest, err, insightError{Error: msgInvalidInsightType})
		return
	}
	if err := s.validateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rec, err := loan.Decode(req.LoanData)
	if err != nil {
		writeFailure(w, r, http.StatusBadRequest, err, insightError{Error: msgInvalidLoanData, Details: err.Error()})
		return
	}
	logger.Info("api: insight request received", "category", category, "loan_id", rec.LoanID)

	result, err := s.insights.Generate(r.Context(), insight.Request{
		Record:         rec,
		Category:       category,
		CurrentInsight: req.CurrentInsight,
	})
	if err != nil {
		status, payload := insightFailure(err)
		writeFailure(w, r, status, err, payload)
		return
	}
	s.auditInsight(r, rec.LoanID.String(), string(category))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVoiceSummary(w http.ResponseWriter, r *http.Request) {
	var req voiceSummaryRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, decodeStatus(err), err)
		return
	}
	if err := s.validateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rec, err := loan.Decode(req.LoanData)
	if err != nil {
		writeFailure(w, r, http.StatusBadRequest, err, insightError{Error: msgInvalidLoanData, Details: err.Error()})
		return
	}
	text, err := s.insights.ReduceForSpeech(r.Context(), req.CurrentInsight, rec)
	if err != nil {
		status, payload := insightFailure(err)
		writeFailure(w, r, status, err, payload)
		return
	}
	s.auditInsight(r, rec.LoanID.String(), string(insight.CategorySummaryVoice))
	writeJSON(w, http.StatusOK, voiceSummaryResponse{Text: text})
}

func insightFailure(err error) (int, insightError) {
	switch {
	case errors.Is(err, insight.ErrInvalidCategory):
		return http.StatusBadRequest, insightError{Error: msgInvalidInsightType}
	case errors.Is(err, insight.ErrMissingInsight):
		return http.StatusBadRequest, insightError{Error: insight.ErrMissingInsight.Error()}
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError, insightError{Error: msgInsightNotConfigured}
	default:
		return http.StatusInternalServerError, insightError{Error: msgInsightFailed, Details: err.Error()}
	}
}

func (s *Server) auditInsight(r *http.Request, loanID, category string) {
	if s.catalog == nil || loanID == "" {
		return
	}
	if err := s.catalog.RecordAudit(r.Context(), loanID, "insight", "category="+category); err != nil {
		loggerFor(r).Warn("api: insight audit failed", "loan_id", loanID, "error", err)
	}
}
