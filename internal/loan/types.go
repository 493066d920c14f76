// File path: internal/loan/types.go
package loan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Covenant and timeline enumerations used by the LoanJSON standard.
const (
	CovenantCompliant = "compliant"
	CovenantBreached  = "breached"

	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"

	EventOrigination = "origination"
	EventAmendment   = "amendment"
	EventReview      = "review"
	EventPayment     = "payment"
	EventBreach      = "breach"

	SchemaType = "LoanJSON-Standard"
)

// Record is the canonical LoanJSON representation of a single loan. Scalar
// labels use Text so records whose identifiers arrive as numbers still decode.
type Record struct {
	Metadata   Metadata   `json:"metadata"`
	LoanID     Text       `json:"loan_id"`
	Borrower   Borrower   `json:"borrower"`
	LoanTerms  LoanTerms  `json:"loan_terms"`
	Covenants  []Covenant `json:"covenants"`
	RiskEngine RiskEngine `json:"risk_engine"`
	Timeline   []Event    `json:"timeline"`
}

type Metadata struct {
	Version     Text `json:"version"`
	LastUpdated Text `json:"last_updated"`
	SchemaType  Text `json:"schema_type"`
}

type Borrower struct {
	Name         Text `json:"name"`
	Jurisdiction Text `json:"jurisdiction"`
	Sector       Text `json:"sector"`
	CreditRating Text `json:"credit_rating"`
}

type LoanTerms struct {
	Principal       Principal    `json:"principal"`
	InterestRate    InterestRate `json:"interest_rate"`
	MaturityDate    Text         `json:"maturity_date"`
	OriginationDate Text         `json:"origination_date"`
}

type Principal struct {
	Amount   Number `json:"amount"`
	Currency Text   `json:"currency"`
}

type InterestRate struct {
	Type         Text   `json:"type"`
	Base         Text   `json:"base"`
	Margin       Number `json:"margin"`
	CurrentAllIn Number `json:"current_all_in"`
}

type Covenant struct {
	ID           Text   `json:"id"`
	Description  Text   `json:"description"`
	Threshold    Number `json:"threshold"`
	Unit         Text   `json:"unit"`
	CurrentValue Number `json:"current_value"`
	Status       Text   `json:"status"`
	LastCheck    Text   `json:"last_check"`
}

// Breached reports whether the record marks the covenant as breached. The
// status is authoritative; the numbers are never re-evaluated.
func (c Covenant) Breached() bool {
	return c.Status.Is(CovenantBreached)
}

type RiskEngine struct {
	HealthScore Number     `json:"health_score"`
	Trend       Text       `json:"trend"`
	Prediction  Prediction `json:"prediction"`
}

type Prediction struct {
	ProbabilityOfDefault Number   `json:"probability_of_default"`
	Horizon              Text     `json:"horizon"`
	Factors              TextList `json:"factors"`
}

type Event struct {
	Date        Text `json:"date"`
	Event       Text `json:"event"`
	Description Text `json:"description"`
	Type        Text `json:"type"`
}

// ErrNotObject is returned by Decode when the document is not a JSON object.
var ErrNotObject = errors.New("loan record must be a JSON object")

// Decode parses a LoanJSON document into a Record. It accepts anything
// IsValidLoanRecord accepts: a nested value of the wrong shape, such as
// covenants given as an object, is left at its zero value instead of
// failing the whole record.
func Decode(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, ErrNotObject
	}
	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return Record{}, fmt.Errorf("decode loan record: %w", err)
		}
	}
	return rec, nil
}

// Text is a label that accepts any JSON scalar. Numbers and booleans keep
// their literal form, null is empty, objects and arrays keep compact JSON.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*t = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
	case trimmed[0] == '{' || trimmed[0] == '[':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return err
		}
		*t = Text(compact.String())
	default:
		*t = Text(trimmed)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Is compares case-insensitively, ignoring surrounding whitespace.
func (t Text) Is(value string) bool {
	return strings.EqualFold(strings.TrimSpace(string(t)), value)
}

// TextList is a list of labels. A lone scalar decodes as a one-element list.
type TextList []Text

func (l *TextList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] != '[' {
		var single Text
		if err := single.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*l = TextList{single}
		return nil
	}
	var items []Text
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

func (l TextList) Join(sep string) string {
	parts := make([]string, 0, len(l))
	for _, item := range l {
		if strings.TrimSpace(string(item)) == "" {
			continue
		}
		parts = append(parts, string(item))
	}
	return strings.Join(parts, sep)
}

// Number is a float that also accepts numeric strings and null when decoded,
// since structured output from completion providers is loosely typed. Values
// that carry no number, such as "n/a", booleans or objects, read as zero.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		s = strings.ReplaceAll(s, ",", "")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

func (n Number) Float() float64 { return float64(n) }

// String renders the number the way a JSON serializer would: no exponent,
// no trailing zeros.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
