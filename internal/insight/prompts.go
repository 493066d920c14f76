// File path: internal/insight/prompts.go
package insight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

// Category selects the analyst template and the insight framing.
type Category string

const (
	CategoryExplain      Category = "explain"
	CategoryRisk         Category = "risk"
	CategoryESG          Category = "esg"
	CategorySummaryVoice Category = "summary-voice"
)

// ErrInvalidCategory is returned for any category outside the four known ones.
var ErrInvalidCategory = errors.New("invalid insight type")

type heading struct {
	Title    string
	Subtitle string
}

var titles = map[Category]heading{
	CategoryExplain: {
		Title:    "Loan Explanation",
		Subtitle: "Comprehensive overview of loan structure and current status",
	},
	CategoryRisk: {
		Title:    "Risk Analysis",
		Subtitle: "Detailed assessment of risk factors and mitigation strategies",
	},
	CategoryESG: {
		Title:    "ESG Impact Assessment",
		Subtitle: "Environmental, Social, and Governance considerations",
	},
	CategorySummaryVoice: {
		Title:    "Executive Summary",
		Subtitle: "Professional summary suitable for text-to-speech",
	},
}

// ParseCategory maps a request value onto a known category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.TrimSpace(value))
	if _, ok := titles[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, value)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := titles[c]
	return ok
}

const analystPreamble = `You are a conservative banking analyst providing clear, non-technical, regulator-friendly analysis.
Base your analysis only on the provided loan data. Do not hallucinate or speculate.
Use professional banking terminology but explain concepts clearly for a broad audience.`

// buildPrompt assembles preamble, category template and grounding summary.
func buildPrompt(category Category, rec loan.Record, currentInsight string) string {
	summary := GroundingSummary(rec)
	var body string
	switch category {
	case CategoryExplain:
		body = fmt.Sprintf(`Provide a comprehensive explanation of this loan for banking professionals. Structure your response with these sections:

Loan Data:
%s

Provide:
1. Loan Overview: Summarize the key terms and structure
2. Current Status: Explain the current state of the loan
3. Performance Metrics: Interpret the health score and default probability
4. Key Considerations: Highlight important factors for bank management

Keep the tone professional and conservative. Be concise but thorough.`, summary)
	case CategoryRisk:
		body = fmt.Sprintf(`Provide a risk analysis of this loan for banking professionals. Structure your response with these sections:

Loan Data:
%s

Risk Factors: %s

Provide:
1. Risk Assessment: Evaluate the overall risk profile
2. Covenant Analysis: Analyze any covenant breaches and their implications
3. Default Probability: Interpret the 90-day default probability
4. Mitigation Strategies: Suggest conservative risk mitigation approaches

Focus on concrete risk factors from the data. Avoid speculation.`, summary, rec.RiskEngine.Prediction.Factors.Join(", "))
	case CategoryESG:
		body = fmt.Sprintf(`Provide an ESG (Environmental, Social, Governance) impact assessment for this loan.

Loan Data:
%s

Based on the borrower sector (%s) and available data, provide:
1. ESG Considerations: Relevant ESG factors for this sector
2. Performance Indicators: How operational metrics relate to ESG
3. Governance Assessment: Evaluate governance based on covenant compliance
4. ESG Risk Factors: Identify potential ESG-related risks

Be conservative and base analysis on sector norms and the provided data.`, summary, rec.Borrower.Sector)
	case CategorySummaryVoice:
		body = fmt.Sprintf(`Based on the following loan analysis, generate a short, professional, executive-level summary suitable for text-to-speech.
The summary should be approximately 10-20 seconds when spoken (roughly 40-60 words).
Focus on high-level risk and performance. Do not read raw numbers, table data, or JSON keys.
Keep it calm and regulator-friendly.

Analysis:
%s

Loan Context:
%s`, currentInsight, summary)
	}
	return analystPreamble + "\n\n" + body
}
