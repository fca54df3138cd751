// Package validate checks canonical-keyed piece records against the
// required-field, numeric-range, and array-shape rules. Validation coerces
// values in place as a documented side effect: callers must treat the passed
// record as mutated whether or not it passes.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"piececore/pkg/domain"
)

// Result reports the outcome of a validation pass. IsValid is true exactly
// when Errors is empty.
type Result struct {
	IsValid bool
	Errors  []string
}

// Error aggregates validation failures into one error suitable for
// surfacing to a caller.
type Error struct {
	Errors []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// Record validates rec. Coercions applied regardless of overall validity:
// empty or "N/A" numeric values become nil, numeric strings become floats,
// and the holder-name field is forced into array shape.
func Record(rec domain.RawRecord) Result {
	var errs []string

	for _, field := range domain.RequiredFields {
		val, ok := rec[field]
		if !ok || val == nil || strings.TrimSpace(domain.CoerceString(val)) == "" {
			errs = append(errs, fmt.Sprintf("%s is required", field))
		}
	}

	for _, field := range domain.NumericFields {
		val, ok := rec[field]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case nil:
			// already null
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" || trimmed == "N/A" {
				rec[field] = nil
				continue
			}
			parsed, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s must be a valid number or \"N/A\"", field))
				continue
			}
			rec[field] = parsed
		case float64:
			// already numeric
		case int:
			rec[field] = float64(v)
		default:
			errs = append(errs, fmt.Sprintf("%s must be a valid number or \"N/A\"", field))
		}
	}

	for _, field := range domain.ArrayFields {
		val, ok := rec[field]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case []string, []any:
			// already array-shaped
		case string:
			rec[field] = domain.CoerceStringSlice(v)
		default:
			rec[field] = []string{}
		}
	}

	if apn := domain.CoerceString(rec[domain.FieldAPN]); len(apn) > domain.MaxAPNLength {
		errs = append(errs, fmt.Sprintf("APN is too long (maximum %d characters)", domain.MaxAPNLength))
	}

	stock := domain.CoerceNumber(rec[domain.FieldUnrestrictedStock])
	min := domain.CoerceNumber(rec[domain.FieldMin])
	if stock != nil && min != nil {
		if *stock < 0 {
			errs = append(errs, "Unrestricted Stock cannot be negative")
		}
		if *min < 0 {
			errs = append(errs, "Minimum stock cannot be negative")
		}
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Err converts a failed result into an aggregate error, or nil when valid.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Errors: r.Errors}
}

// FormatErrors renders validation messages for display.
func FormatErrors(errs []string) string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0]
	default:
		return fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(errs, ", "))
	}
}
