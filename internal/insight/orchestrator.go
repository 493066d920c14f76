// File path: internal/insight/orchestrator.go
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common/telemetry"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

// ErrMissingInsight is returned when a summary-voice insight is requested
// without the prior insight text it compresses.
var ErrMissingInsight = errors.New("summary-voice requires the current insight text")

// Request describes one insight generation.
type Request struct {
	Record         loan.Record
	Category       Category
	CurrentInsight string
}

// Insight is the structured analyst answer returned to the dashboard.
type Insight struct {
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle"`
	Sections        []Section `json:"sections"`
	Recommendations []string  `json:"recommendations,omitempty"`
	RawText         string    `json:"rawText"`
}

// Orchestrator turns a LoanJSON record into category-specific insights with a
// single completion call per request. It holds no per-request state.
type Orchestrator struct {
	provider llm.Provider
}

// NewOrchestrator builds an Orchestrator. provider may be nil, in which case
// every generation fails with llm.ErrNotConfigured.
func NewOrchestrator(provider llm.Provider) *Orchestrator {
	return &Orchestrator{provider: provider}
}

func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Insight, error) {
	logger := common.Logger().With("component", "insight")
	if !req.Category.Valid() {
		telemetry.RecordInsight("invalid", ErrInvalidCategory)
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, string(req.Category))
	}
	if req.Category == CategorySummaryVoice && strings.TrimSpace(req.CurrentInsight) == "" {
		telemetry.RecordInsight(string(req.Category), ErrMissingInsight)
		return nil, ErrMissingInsight
	}
	if o.provider == nil {
		telemetry.RecordInsight(string(req.Category), llm.ErrNotConfigured)
		logger.Warn("insight: completion provider not configured", "category", req.Category)
		return nil, llm.ErrNotConfigured
	}

	prompt := buildPrompt(req.Category, req.Record, req.CurrentInsight)
	logger.Debug("insight: requesting analysis", "category", req.Category, "loan_id", req.Record.LoanID, "prompt_length", len(prompt))
	text, err := o.provider.Complete(ctx, llm.Request{Prompt: prompt, Format: llm.FormatText})
	if err != nil {
		telemetry.RecordInsight(string(req.Category), err)
		logger.Error("insight: completion failed", "category", req.Category, "loan_id", req.Record.LoanID, "error", err)
		return nil, fmt.Errorf("generate %s insight: %w", req.Category, err)
	}

	result := assemble(req.Category, text)
	telemetry.RecordInsight(string(req.Category), nil)
	logger.Info("insight: analysis generated",
		"category", req.Category,
		"loan_id", req.Record.LoanID,
		"sections", len(result.Sections),
		"recommendations", len(result.Recommendations))
	return result, nil
}

// assemble parses raw analyst text into the insight payload. The section the
// recommendations came from is only listed through Recommendations. A
// recommendations heading that yields no bullets stays in Sections so its
// text is not lost.
func assemble(category Category, text string) *Insight {
	sections := ParseSections(text)
	recommendations := ExtractRecommendations(sections)
	if len(recommendations) > 0 {
		idx := recommendationIndex(sections)
		sections = append(sections[:idx:idx], sections[idx+1:]...)
	} else {
		recommendations = nil
	}
	head := titles[category]
	return &Insight{
		Title:           head.Title,
		Subtitle:        head.Subtitle,
		Sections:        sections,
		Recommendations: recommendations,
		RawText:         text,
	}
}
