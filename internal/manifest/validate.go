package manifest

import (
	"fmt"
	"strings"

	"github.com/roach88/fieldreg/internal/ir"
)

// Validation error codes (E200-E209)
const (
	ErrCodeSyntax      = "E200" // manifest is not valid CUE or JSON
	ErrCodeSchema      = "E201" // entry violates the schema
	ErrCodeNoEquipment = "E202" // equipment list missing
	ErrCodeDateOrder   = "E203" // installed before purchased
	ErrCodeDuplicate   = "E204" // serial number repeated in the manifest
)

// ValidationError represents one manifest problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is every problem found in one manifest.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// validateEntries checks rules that span fields or entries.
// Returns all errors found (does not fail-fast).
func validateEntries(entries []ir.EquipmentAttributes) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]int)

	for i, e := range entries {
		if e.PurchaseDate > 0 && e.InstallationDate > 0 && e.InstallationDate < e.PurchaseDate {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("equipment[%d].installation_date", i),
				Message: fmt.Sprintf("installation date %d is before purchase date %d", e.InstallationDate, e.PurchaseDate),
				Code:    ErrCodeDateOrder,
			})
		}

		if first, ok := seen[e.SerialNumber]; ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("equipment[%d].serial_number", i),
				Message: fmt.Sprintf("serial number %q already listed at equipment[%d]", e.SerialNumber, first),
				Code:    ErrCodeDuplicate,
			})
			continue
		}
		seen[e.SerialNumber] = i
	}
	return errs
}
