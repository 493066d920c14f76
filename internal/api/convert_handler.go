// File path: internal/api/convert_handler.go
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/normalize"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

const (
	msgConvertNotConfigured = "AI configuration missing. Please configure the completion provider credentials."
	msgConvertUnparsable    = "Failed to parse converted loan data"
	msgConvertUnsupported   = "Invalid or unsupported loan document"
	msgConvertTooLarge      = "Loan document exceeds the upload size limit"
)

func (s *Server) handleConvertLoan(w http.ResponseWriter, r *http.Request) {
	logger := loggerFor(r)
	var req convertRequest
	if err := s.decodeJSON(r, &req); err != nil {
		// An upload cut off by the body limit is a conversion failure, not a
		// malformed request.
		if errors.Is(err, errBodyTooLarge) {
			writeFailure(w, r, http.StatusInternalServerError, err, convertResponse{Error: msgConvertTooLarge})
			return
		}
		writeFailure(w, r, http.StatusBadRequest, err, convertResponse{Error: err.Error()})
		return
	}
	if err := s.validateStruct(req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, err, convertResponse{Error: err.Error()})
		return
	}
	logger.Info("api: convert request received", "file", req.FileName, "type", req.FileType, "bytes", len(req.Content))

	result, err := s.normalizer.Normalize(r.Context(), normalize.Document{
		Content:     req.Content,
		FileName:    req.FileName,
		ContentType: req.FileType,
	})
	if err != nil {
		status, message := convertFailure(err)
		writeFailure(w, r, status, err, convertResponse{Error: message})
		return
	}

	uploadID := uuid.NewString()
	s.catalogUpload(r.Context(), r, uploadID, req.FileName, result)
	writeJSON(w, http.StatusOK, convertResponse{
		Success:  true,
		Data:     result.Data,
		Message:  result.Message,
		UploadID: uploadID,
	})
}

func convertFailure(err error) (int, string) {
	switch {
	case errors.Is(err, normalize.ErrUnparsableOutput):
		return http.StatusUnprocessableEntity, msgConvertUnparsable
	case errors.Is(err, normalize.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, normalize.ErrInvalidRecord.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError, msgConvertNotConfigured
	default:
		return http.StatusInternalServerError, msgConvertUnsupported
	}
}

// catalogUpload stores a normalized record. Failures are logged only; the
// client still receives its record.
func (s *Server) catalogUpload(ctx context.Context, r *http.Request, uploadID, fileName string, result normalize.Result) {
	if s.catalog == nil {
		return
	}
	logger := loggerFor(r)
	rec, err := loan.Decode(result.Data)
	if err != nil {
		logger.Warn("api: normalized record not catalogued", "upload_id", uploadID, "error", err)
		return
	}
	row, err := s.catalog.SaveLoan(ctx, sqlite.Upload{
		UploadID: uploadID,
		Source:   result.Source,
		FileName: fileName,
		Record:   rec,
		Data:     result.Data,
	})
	if err != nil {
		logger.Warn("api: catalog save failed", "upload_id", uploadID, "loan_id", rec.LoanID, "error", err)
		return
	}
	logger.Info("api: loan catalogued", "upload_id", uploadID, "loan_id", row.LoanID, "source", row.Source)
}
