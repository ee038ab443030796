package gateway

// dlrRequiredFields are checked in this order; the order of the
// reported errors is part of the contract.
var dlrRequiredFields = []string{"msg_id", "to", "status"}

// DLRValidation is the result of a structural delivery-report check.
// Errors is always non-nil; it is empty when Valid is true.
type DLRValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateDLR checks an inbound delivery-report payload, e.g. a
// decoded webhook body, for the presence of the required fields. It
// needs no credential and performs no network call, and it never
// fails: both the validity flag and the per-field errors are always
// returned.
func ValidateDLR(payload map[string]any) DLRValidation {
	result := DLRValidation{Valid: true, Errors: []string{}}

	for _, field := range dlrRequiredFields {
		value, ok := payload[field]
		if !ok || isEmptyValue(value) {
			result.Valid = false
			result.Errors = append(result.Errors, field+" is missing")
		}
	}

	return result
}

func isEmptyValue(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	default:
		return false
	}
}
