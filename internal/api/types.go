// File path: internal/api/types.go
package api

import (
	"encoding/json"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

type convertRequest struct {
	Content  string `json:"content"`
	FileName string `json:"fileName" validate:"max=512"`
	FileType string `json:"fileType" validate:"max=255"`
}

type convertResponse struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	UploadID string          `json:"uploadId,omitempty"`
}

type insightRequest struct {
	LoanData       json.RawMessage `json:"loanData" validate:"required"`
	InsightType    string          `json:"insightType"`
	CurrentInsight string          `json:"currentInsight"`
}

type insightError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type voiceSummaryRequest struct {
	LoanData       json.RawMessage `json:"loanData" validate:"required"`
	CurrentInsight string          `json:"currentInsight" validate:"required"`
}

type voiceSummaryResponse struct {
	Text string `json:"text"`
}

type ttsRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type loanListResponse struct {
	Loans []sqlite.LoanRow `json:"loans"`
	Count int              `json:"count"`
}

type loanResponse struct {
	sqlite.LoanRow
	Data json.RawMessage `json:"data"`
}

type loanOverview struct {
	LoanID          string               `json:"loan_id"`
	Borrower        loan.Borrower        `json:"borrower"`
	LoanTerms       loan.LoanTerms       `json:"loan_terms"`
	HealthScore     float64              `json:"health_score"`
	Trend           string               `json:"trend"`
	Risk            loan.RiskAssessment  `json:"risk"`
	Covenants       loan.CovenantSummary `json:"covenants"`
	Timeline        []loan.Event         `json:"timeline"`
	TimelineSummary loan.TimelineSummary `json:"timeline_summary"`
	Audit           []sqlite.AuditRow    `json:"audit"`
	DownloadName    string               `json:"download_name"`
}
