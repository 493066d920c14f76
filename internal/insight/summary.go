// File path: internal/insight/summary.go
package insight

import (
	"fmt"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/loan"
)

// GroundingSummary renders the loan facts every analyst prompt is anchored
// on. Covenant status is taken from the record as-is.
func GroundingSummary(rec loan.Record) string {
	terms := rec.LoanTerms
	risk := rec.RiskEngine
	stats := loan.CovenantStats(rec)

	breaches := make([]string, 0, len(stats.Breaches))
	for _, c := range stats.Breaches {
		breaches = append(breaches, fmt.Sprintf("%s (Current: %s%s, Threshold: %s%s)",
			c.Description, c.CurrentValue, c.Unit, c.Threshold, c.Unit))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Loan ID: %s\n", rec.LoanID)
	fmt.Fprintf(&b, "Borrower: %s (%s, %s)\n", rec.Borrower.Name, rec.Borrower.Sector, rec.Borrower.CreditRating)
	fmt.Fprintf(&b, "Principal: %s %s\n", terms.Principal.Amount, terms.Principal.Currency)
	fmt.Fprintf(&b, "Interest Rate: %s%% (%s)\n", terms.InterestRate.CurrentAllIn, terms.InterestRate.Type)
	fmt.Fprintf(&b, "Maturity: %s\n", terms.MaturityDate)
	fmt.Fprintf(&b, "Health Score: %s/100 (%s)\n", risk.HealthScore, risk.Trend)
	fmt.Fprintf(&b, "Probability of Default (90d): %.1f%%\n", risk.Prediction.ProbabilityOfDefault.Float()*100)
	fmt.Fprintf(&b, "Covenants: %d total, %d breached\n", stats.Total, stats.Breached)
	fmt.Fprintf(&b, "Covenant Breaches: %s", strings.Join(breaches, "; "))
	return b.String()
}
