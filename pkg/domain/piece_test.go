package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCoerceString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{3.5, "3.5"},
		{float64(7), "7"},
		{42, "42"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := CoerceString(c.in); got != c.want {
			t.Fatalf("CoerceString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	if got := CoerceNumber("2.5"); got == nil || *got != 2.5 {
		t.Fatalf("numeric string: %v", got)
	}
	if got := CoerceNumber(" 7 "); got == nil || *got != 7 {
		t.Fatalf("padded string: %v", got)
	}
	if got := CoerceNumber(3); got == nil || *got != 3 {
		t.Fatalf("int: %v", got)
	}
	for _, in := range []any{nil, "", "N/A", "n/a", "abc", true, []string{"x"}} {
		if got := CoerceNumber(in); got != nil {
			t.Fatalf("CoerceNumber(%v) = %v, want nil", in, got)
		}
	}
}

func TestCoerceStringSlice(t *testing.T) {
	if got := CoerceStringSlice("Alice, Bob ,,"); !reflect.DeepEqual(got, []string{"Alice", "Bob"}) {
		t.Fatalf("comma string: %v", got)
	}
	if got := CoerceStringSlice([]any{"x", 2, nil}); !reflect.DeepEqual(got, []string{"x", "2"}) {
		t.Fatalf("mixed slice: %v", got)
	}
	if got := CoerceStringSlice(42); !reflect.DeepEqual(got, []string{}) {
		t.Fatalf("scalar: %v", got)
	}
}

func TestPieceRecordRoundTrip(t *testing.T) {
	price := 9.5
	p := Piece{
		ID:          "doc1",
		APN:         "A1",
		PartsHolder: "Bracket",
		UnitPrice:   &price,
		HolderName:  []string{"Alice"},
		Extra:       RawRecord{"Custom": "kept"},
	}
	rec := p.Record()
	if rec[FieldID] != "doc1" || rec[FieldAPN] != "A1" || rec["Custom"] != "kept" {
		t.Fatalf("unexpected record %v", rec)
	}
	back := PieceFromRecord(rec)
	if !reflect.DeepEqual(back, p) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", back, p)
	}
}

func TestFieldsOmitsID(t *testing.T) {
	p := Piece{ID: "doc1", APN: "A1"}
	fields := p.Fields()
	if _, ok := fields[FieldID]; ok {
		t.Fatalf("fields should not carry the id: %v", fields)
	}
	if fields[FieldAPN] != "A1" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestRecordOmitsEmptyValues(t *testing.T) {
	rec := Piece{APN: "A1"}.Record()
	if _, ok := rec[FieldSPN]; ok {
		t.Fatalf("empty string field should be omitted: %v", rec)
	}
	if _, ok := rec[FieldUnitPrice]; ok {
		t.Fatalf("nil numeric field should be omitted: %v", rec)
	}
	if _, ok := rec[FieldHolderName]; !ok {
		t.Fatalf("holder name must always be present: %v", rec)
	}
}

func TestPieceJSONRoundTrip(t *testing.T) {
	stock := 5.0
	p := Piece{ID: "doc1", APN: "A1", UnrestrictedStock: &stock, HolderName: []string{"Alice"}, Extra: RawRecord{}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Piece
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != "doc1" || back.APN != "A1" {
		t.Fatalf("unexpected piece %#v", back)
	}
	if back.UnrestrictedStock == nil || *back.UnrestrictedStock != 5 {
		t.Fatalf("stock lost: %#v", back)
	}
}
