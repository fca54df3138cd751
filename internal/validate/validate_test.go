package validate

import (
	"reflect"
	"strings"
	"testing"

	"piececore/pkg/domain"
)

func valid() domain.RawRecord {
	return domain.RawRecord{
		domain.FieldAPN:         "A1",
		domain.FieldPartsHolder: "H",
	}
}

func TestValidRecordPasses(t *testing.T) {
	res := Record(valid())
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestRequiredFields(t *testing.T) {
	res := Record(domain.RawRecord{})
	if res.IsValid {
		t.Fatal("expected failure for empty record")
	}
	joined := strings.Join(res.Errors, "; ")
	if !strings.Contains(joined, "APN is required") {
		t.Fatalf("missing APN error: %v", res.Errors)
	}
	if !strings.Contains(joined, "Parts Holder is required") {
		t.Fatalf("missing Parts Holder error: %v", res.Errors)
	}
}

func TestBlankRequiredFieldFails(t *testing.T) {
	rec := valid()
	rec[domain.FieldAPN] = "   "
	if res := Record(rec); res.IsValid {
		t.Fatal("expected whitespace-only APN to fail")
	}
}

func TestNumericNACoercesToNil(t *testing.T) {
	rec := valid()
	rec[domain.FieldUnrestrictedStock] = "N/A"
	res := Record(rec)
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if rec[domain.FieldUnrestrictedStock] != nil {
		t.Fatalf("expected nil stock, got %v", rec[domain.FieldUnrestrictedStock])
	}
}

func TestNumericEmptyCoercesToNil(t *testing.T) {
	rec := valid()
	rec[domain.FieldUnitPrice] = ""
	res := Record(rec)
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if rec[domain.FieldUnitPrice] != nil {
		t.Fatalf("expected nil price, got %v", rec[domain.FieldUnitPrice])
	}
}

func TestNumericStringCoercesToFloat(t *testing.T) {
	rec := valid()
	rec[domain.FieldMin] = " 2.5 "
	rec[domain.FieldMax] = 7
	res := Record(rec)
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if rec[domain.FieldMin] != 2.5 {
		t.Fatalf("expected 2.5, got %v", rec[domain.FieldMin])
	}
	if rec[domain.FieldMax] != 7.0 {
		t.Fatalf("expected 7.0, got %v", rec[domain.FieldMax])
	}
}

func TestNonNumericStringFails(t *testing.T) {
	rec := valid()
	rec[domain.FieldUnrestrictedStock] = "abc"
	res := Record(rec)
	if res.IsValid {
		t.Fatal("expected failure for non-numeric stock")
	}
	if !strings.Contains(strings.Join(res.Errors, "; "), "Unrestricted Stock") {
		t.Fatalf("error should name the field: %v", res.Errors)
	}
}

func TestAPNTooLong(t *testing.T) {
	rec := valid()
	rec[domain.FieldAPN] = strings.Repeat("x", domain.MaxAPNLength+1)
	if res := Record(rec); res.IsValid {
		t.Fatal("expected failure for over-long APN")
	}
}

func TestNegativeStockAndMin(t *testing.T) {
	rec := valid()
	rec[domain.FieldUnrestrictedStock] = -1.0
	rec[domain.FieldMin] = -2.0
	res := Record(rec)
	if res.IsValid {
		t.Fatal("expected failure for negative values")
	}
	joined := strings.Join(res.Errors, "; ")
	if !strings.Contains(joined, "Unrestricted Stock cannot be negative") {
		t.Fatalf("missing stock error: %v", res.Errors)
	}
	if !strings.Contains(joined, "Minimum stock cannot be negative") {
		t.Fatalf("missing min error: %v", res.Errors)
	}
}

func TestNegativeChecksNeedBothNumeric(t *testing.T) {
	// With Min absent the negative stock check does not fire.
	rec := valid()
	rec[domain.FieldUnrestrictedStock] = -1.0
	if res := Record(rec); !res.IsValid {
		t.Fatalf("expected valid when Min is absent, got %v", res.Errors)
	}

	rec = valid()
	rec[domain.FieldMin] = -2.0
	if res := Record(rec); !res.IsValid {
		t.Fatalf("expected valid when stock is absent, got %v", res.Errors)
	}
}

func TestHolderNameStringCoercedToArray(t *testing.T) {
	rec := valid()
	rec[domain.FieldHolderName] = "Alice, Bob"
	res := Record(rec)
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
	if !reflect.DeepEqual(rec[domain.FieldHolderName], []string{"Alice", "Bob"}) {
		t.Fatalf("expected array shape, got %v", rec[domain.FieldHolderName])
	}
}

func TestAggregateErrorMessage(t *testing.T) {
	rec := domain.RawRecord{domain.FieldUnrestrictedStock: "abc"}
	err := Record(rec).Err()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "validation failed: ") {
		t.Fatalf("unexpected prefix: %s", msg)
	}
	for _, want := range []string{"APN is required", "Parts Holder is required", "Unrestricted Stock"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q: %s", want, msg)
		}
	}
}

func TestFormatErrors(t *testing.T) {
	if got := FormatErrors(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := FormatErrors([]string{"one"}); got != "one" {
		t.Fatalf("got %q", got)
	}
	got := FormatErrors([]string{"one", "two"})
	if !strings.Contains(got, "2 validation errors") || !strings.Contains(got, "one, two") {
		t.Fatalf("got %q", got)
	}
}
