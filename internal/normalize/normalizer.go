// File path: internal/normalize/normalizer.go
package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common/telemetry"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

const (
	SourcePassthrough = "passthrough"
	SourceStructured  = "structured"

	MessagePassthrough = "File uploaded and analyzed successfully"
	MessageStructured  = "File converted to LoanJSON and analyzed"
)

var (
	// ErrCapabilityUnavailable means the completion provider is missing or
	// the call to it failed.
	ErrCapabilityUnavailable = errors.New("completion capability unavailable")
	// ErrUnparsableOutput means the provider answered with something that is
	// not JSON.
	ErrUnparsableOutput = errors.New("failed to parse converted loan data")
	// ErrInvalidRecord is returned in strict mode when provider output lacks
	// the minimal LoanJSON fields.
	ErrInvalidRecord = errors.New("converted loan data is not a LoanJSON record")
)

// Document is an uploaded loan document as received from the client.
type Document struct {
	Content     string
	FileName    string
	ContentType string
}

// Result carries the normalized record. Data holds the exact JSON text that
// was accepted: the uploaded bytes on pass-through, the provider output
// otherwise.
type Result struct {
	Data    json.RawMessage
	Source  string
	Message string
}

// Normalizer turns uploaded documents into LoanJSON records, using the
// completion provider only when the upload is not already valid LoanJSON.
type Normalizer struct {
	provider llm.Provider
	cfg      config.NormalizeConfig
	now      func() time.Time
}

// New builds a Normalizer. provider may be nil when no completion capability
// is configured; JSON pass-through keeps working in that case.
func New(provider llm.Provider, cfg config.NormalizeConfig) *Normalizer {
	return &Normalizer{provider: provider, cfg: cfg, now: time.Now}
}

// Normalize returns doc as a LoanJSON record. It makes at most one completion
// call and never retries. Content is not screened: blank or odd uploads go to
// the provider like any other text, and its answer decides the outcome.
func (n *Normalizer) Normalize(ctx context.Context, doc Document) (Result, error) {
	logger := common.Logger().With("component", "normalize")
	if IsJSONDocument(doc.FileName, doc.ContentType) {
		if loan.ValidateJSON([]byte(doc.Content)) {
			logger.Info("normalize: pass-through LoanJSON upload", "file", doc.FileName, "bytes", len(doc.Content))
			telemetry.RecordNormalize(SourcePassthrough)
			return Result{
				Data:    json.RawMessage(doc.Content),
				Source:  SourcePassthrough,
				Message: MessagePassthrough,
			}, nil
		}
		logger.Info("normalize: JSON upload is not LoanJSON, structuring with provider", "file", doc.FileName)
	}

	if n.provider == nil {
		telemetry.RecordNormalizeFailure("not_configured")
		logger.Warn("normalize: completion provider not configured", "file", doc.FileName)
		return Result{}, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, llm.ErrNotConfigured)
	}

	prompt := structuringPrompt(doc.Content, n.now())
	text, err := n.provider.Complete(ctx, llm.Request{Prompt: prompt, Format: llm.FormatJSON})
	if err != nil {
		telemetry.RecordNormalizeFailure("provider")
		logger.Error("normalize: completion failed", "file", doc.FileName, "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	cleaned := stripCodeFence(text)
	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		telemetry.RecordNormalizeFailure("unparsable")
		logger.Warn("normalize: provider output is not JSON", "file", doc.FileName, "response_length", len(text), "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrUnparsableOutput, err)
	}
	if n.cfg.StrictAIOutput && !loan.IsValidLoanRecord(parsed) {
		telemetry.RecordNormalizeFailure("invalid")
		logger.Warn("normalize: provider output failed LoanJSON gate", "file", doc.FileName)
		return Result{}, ErrInvalidRecord
	}

	logger.Info("normalize: document structured", "file", doc.FileName, "provider", n.provider.Name(), "bytes", len(cleaned))
	telemetry.RecordNormalize(SourceStructured)
	return Result{
		Data:    json.RawMessage(cleaned),
		Source:  SourceStructured,
		Message: MessageStructured,
	}, nil
}

// IsJSONDocument reports whether the upload declares itself as JSON, either
// through its media type or its file extension.
func IsJSONDocument(fileName, contentType string) bool {
	if strings.EqualFold(filepath.Ext(strings.TrimSpace(fileName)), ".json") {
		return true
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(contentType)
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
