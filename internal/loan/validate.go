// File path: internal/loan/validate.go
package loan

import (
	"encoding/json"
)

// requiredFields is the minimal gate deciding whether a document is already
// LoanJSON. It is intentionally shallow.
var requiredFields = []string{"loan_id", "borrower", "loan_terms"}

// IsValidLoanRecord reports whether candidate, a value produced by decoding
// JSON into interface{}, carries loan_id, borrower and loan_terms. Nested
// shapes and numeric ranges are not inspected. Any other input, including
// nil and non-object values, yields false.
func IsValidLoanRecord(candidate interface{}) bool {
	obj, ok := candidate.(map[string]interface{})
	if !ok {
		return false
	}
	for _, field := range requiredFields {
		if !present(obj[field]) {
			return false
		}
	}
	return true
}

// ValidateJSON parses data and applies IsValidLoanRecord. It returns false on
// any parse error.
func ValidateJSON(data []byte) bool {
	var candidate interface{}
	if err := json.Unmarshal(data, &candidate); err != nil {
		return false
	}
	return IsValidLoanRecord(candidate)
}

// present treats null, empty strings, false and zero as absent; objects and
// arrays count as present even when empty.
func present(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case json.Number:
		return v != "" && v != "0"
	default:
		return true
	}
}
