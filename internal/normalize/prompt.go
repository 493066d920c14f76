// File path: internal/normalize/prompt.go
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

const schemaOutline = `- metadata: { version: "1.0", last_updated: "%s", schema_type: "%s" }
- loan_id: string
- borrower: { name, jurisdiction, sector, credit_rating }
- loan_terms: { principal: { amount, currency }, interest_rate: { type, base, margin, current_all_in }, maturity_date, origination_date }
- covenants: Array of { id, description, threshold, unit, current_value, status: "compliant" | "breached", last_check }
- risk_engine: { health_score (0-100), trend: "stable" | "increasing" | "decreasing", prediction: { probability_of_default, horizon: "90d", factors: string[] } }
- timeline: Array of { date, event, description, type: "origination" | "amendment" | "review" | "payment" | "breach" }`

// structuringPrompt asks the completion provider to turn free document text
// into a LoanJSON object.
func structuringPrompt(content string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a professional banking document processor. Convert the following loan document text into a standardized LoanJSON format.\n\n")
	b.WriteString("The target schema MUST include:\n")
	fmt.Fprintf(&b, schemaOutline, now.UTC().Format(time.RFC3339), loan.SchemaType)
	b.WriteString("\n\nDocument Content:\n")
	b.WriteString(content)
	b.WriteString("\n\nReturn ONLY the valid JSON object with content type application/json. Populate every top-level field listed above. ")
	b.WriteString("If data is missing, make conservative estimates based on sector norms but mark them clearly as estimated. ")
	b.WriteString("Ensure the timeline is chronological.\n")
	return b.String()
}

// stripCodeFence removes a Markdown code fence wrapped around a JSON reply.
func stripCodeFence(response string) string {
	cleaned := strings.TrimSpace(response)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
		cleaned = cleaned[4:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
