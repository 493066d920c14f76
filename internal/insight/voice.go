// File path: internal/insight/voice.go
package insight

import (
	"context"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

var speechMarkup = strings.NewReplacer("*", "", "#", "", "_", "", "~", "", "`", "", ">", "")

// CleanForSpeech removes Markdown emphasis, heading, code and quote markers.
// Nothing else in the text is changed.
func CleanForSpeech(text string) string {
	return speechMarkup.Replace(text)
}

// ReduceForSpeech compresses a previously generated insight into a short
// spoken summary of the loan, free of Markdown markup.
func (o *Orchestrator) ReduceForSpeech(ctx context.Context, rawInsight string, rec loan.Record) (string, error) {
	result, err := o.Generate(ctx, Request{
		Record:         rec,
		Category:       CategorySummaryVoice,
		CurrentInsight: rawInsight,
	})
	if err != nil {
		return "", err
	}
	return CleanForSpeech(result.RawText), nil
}
