package fallback

import (
	"reflect"
	"testing"

	"piececore/internal/infra/settings/memory"
	"piececore/pkg/domain"
)

func TestEmptyMirrorReadsEmpty(t *testing.T) {
	s := New(memory.NewStore())
	got := s.Pieces()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(memory.NewStore())
	price := 9.5
	in := []domain.Piece{
		{ID: "doc1", APN: "A1", PartsHolder: "H", UnitPrice: &price, HolderName: []string{"Alice"}, Extra: domain.RawRecord{}},
		{ID: "doc2", APN: "B2", PartsHolder: "H", HolderName: []string{}, Extra: domain.RawRecord{}},
	}
	s.Save(in)
	got := s.Pieces()
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, in)
	}
}

func TestSaveLoadFixedPoint(t *testing.T) {
	s := New(memory.NewStore())
	s.Save([]domain.Piece{{ID: "doc1", APN: "A1", PartsHolder: "H", HolderName: []string{"Alice", "Bob"}, Extra: domain.RawRecord{}}})
	first := s.Pieces()
	s.Save(first)
	second := s.Pieces()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("save(load()) not a fixed point:\n got %#v\nwant %#v", second, first)
	}
}

func TestLegacyRecordsRenormalizedOnRead(t *testing.T) {
	settings := memory.NewStore()
	// A historically-stored mirror with synonym keys and a comma-joined
	// holder string.
	legacy := `[{"id":"doc1","apn":"A1","qty":"5","holder":"Alice, Bob","Part_Name":"Bracket"}]`
	if err := settings.SetItem(Key, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := New(settings)
	got := s.Pieces()
	if len(got) != 1 {
		t.Fatalf("expected one piece, got %v", got)
	}
	p := got[0]
	if p.ID != "doc1" || p.APN != "A1" || p.PartsHolder != "Bracket" {
		t.Fatalf("legacy keys not normalized: %#v", p)
	}
	if p.UnrestrictedStock == nil || *p.UnrestrictedStock != 5 {
		t.Fatalf("expected stock 5, got %v", p.UnrestrictedStock)
	}
	if !reflect.DeepEqual(p.HolderName, []string{"Alice", "Bob"}) {
		t.Fatalf("holder names not normalized: %v", p.HolderName)
	}
}

func TestUnparsableMirrorReadsEmpty(t *testing.T) {
	settings := memory.NewStore()
	if err := settings.SetItem(Key, "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := New(settings)
	if got := s.Pieces(); len(got) != 0 {
		t.Fatalf("expected empty on parse failure, got %v", got)
	}
}

func TestWriteFailureSwallowed(t *testing.T) {
	settings := memory.NewStore()
	settings.FailWrites(true)
	s := New(settings)
	s.Save([]domain.Piece{{APN: "A1"}})
	settings.FailWrites(false)
	if got := s.Pieces(); len(got) != 0 {
		t.Fatalf("failed write should leave mirror empty, got %v", got)
	}
}

func TestClear(t *testing.T) {
	s := New(memory.NewStore())
	s.Save([]domain.Piece{{APN: "A1"}})
	s.Clear()
	if got := s.Pieces(); len(got) != 0 {
		t.Fatalf("expected empty after clear, got %v", got)
	}
}
