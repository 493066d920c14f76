// File path: internal/loan/risk.go
package loan

const (
	RiskLow      = "LOW RISK"
	RiskModerate = "MODERATE RISK"
	RiskHigh     = "HIGH RISK"

	lowRiskFloor      = 80
	moderateRiskFloor = 60
)

// RiskAssessment is the banded reading of a health score.
type RiskAssessment struct {
	Level       string `json:"level"`
	Description string `json:"description"`
}

// AssessRisk bands a 0-100 health score: 80 and above is low risk, 60 to 79
// moderate, anything lower high.
func AssessRisk(score float64) RiskAssessment {
	switch {
	case score >= lowRiskFloor:
		return RiskAssessment{
			Level:       RiskLow,
			Description: "Strong credit quality with minimal default probability. Loan exhibits healthy covenant compliance and stable borrower performance metrics.",
		}
	case score >= moderateRiskFloor:
		return RiskAssessment{
			Level:       RiskModerate,
			Description: "Acceptable risk profile with some areas requiring monitoring. Borrower shows satisfactory performance with manageable covenant compliance challenges.",
		}
	default:
		return RiskAssessment{
			Level:       RiskHigh,
			Description: "Elevated credit risk requiring immediate attention. Multiple covenant breaches and declining trend indicate potential default scenarios within forecast horizon.",
		}
	}
}

// CovenantSummary counts covenants by their recorded status.
type CovenantSummary struct {
	Total     int        `json:"total"`
	Breached  int        `json:"breached"`
	Compliant int        `json:"compliant"`
	Breaches  []Covenant `json:"breaches,omitempty"`
}

func CovenantStats(rec Record) CovenantSummary {
	summary := CovenantSummary{Total: len(rec.Covenants)}
	for _, c := range rec.Covenants {
		switch {
		case c.Breached():
			summary.Breached++
			summary.Breaches = append(summary.Breaches, c)
		case c.Status.Is(CovenantCompliant):
			summary.Compliant++
		}
	}
	return summary
}
