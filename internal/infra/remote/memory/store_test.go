package memory

import (
	"context"
	"errors"
	"testing"

	"piececore/pkg/domain"
)

func TestCRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, err := s.Add(ctx, domain.RawRecord{"APN": "A1"})
	if err != nil || id == "" {
		t.Fatalf("add: id=%q err=%v", id, err)
	}

	doc, ok, err := s.Get(ctx, id)
	if err != nil || !ok || doc.Fields["APN"] != "A1" {
		t.Fatalf("get: %v %v %v", doc, ok, err)
	}

	if err := s.Update(ctx, id, domain.RawRecord{"Description": "d"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, _, _ = s.Get(ctx, id)
	if doc.Fields["APN"] != "A1" || doc.Fields["Description"] != "d" {
		t.Fatalf("merge lost fields: %v", doc.Fields)
	}

	if err := s.Update(ctx, "missing", domain.RawRecord{}); err == nil {
		t.Fatal("expected error updating a missing document")
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, id); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestQueryAllStableOrder(t *testing.T) {
	s := NewStore()
	s.Seed("b", domain.RawRecord{"APN": "B"})
	s.Seed("a", domain.RawRecord{"APN": "A"})
	docs, err := s.QueryAll(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("unexpected order %v", docs)
	}
}

func TestSeedIsolation(t *testing.T) {
	s := NewStore()
	fields := domain.RawRecord{"APN": "A1"}
	s.Seed("doc1", fields)
	fields["APN"] = "mutated"
	doc, _, _ := s.Get(context.Background(), "doc1")
	if doc.Fields["APN"] != "A1" {
		t.Fatalf("seed shared the caller map: %v", doc.Fields)
	}
}

func TestBatchCommit(t *testing.T) {
	s := NewStore()
	s.Seed("doc1", domain.RawRecord{"APN": "A1"})

	b := s.NewBatch()
	b.Set("doc2", domain.RawRecord{"APN": "B2"})
	b.Update("doc1", domain.RawRecord{"Description": "d"})
	b.Delete("none")
	if b.Len() != 3 {
		t.Fatalf("expected 3 ops, got %d", b.Len())
	}
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if b.Len() != 0 {
		t.Fatal("commit should reset the batch")
	}
	if s.Commits() != 1 {
		t.Fatalf("expected one commit, got %d", s.Commits())
	}
	doc, _, _ := s.Get(context.Background(), "doc1")
	if doc.Fields["Description"] != "d" {
		t.Fatalf("batch update missed: %v", doc.Fields)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", s.Len())
	}
}

func TestFailureHooks(t *testing.T) {
	s := NewStore()
	s.Seed("doc1", domain.RawRecord{"APN": "A1"})
	ctx := context.Background()

	readErr := errors.New("read down")
	s.FailReads(readErr)
	if _, err := s.QueryAll(ctx); !errors.Is(err, readErr) {
		t.Fatalf("expected read failure, got %v", err)
	}
	s.FailReads(nil)

	writeErr := errors.New("write down")
	s.FailWrites(writeErr)
	if _, err := s.Add(ctx, domain.RawRecord{}); !errors.Is(err, writeErr) {
		t.Fatalf("expected write failure, got %v", err)
	}
	b := s.NewBatch()
	b.Delete("doc1")
	if err := b.Commit(ctx); !errors.Is(err, writeErr) {
		t.Fatalf("expected batch failure, got %v", err)
	}
	s.FailWrites(nil)

	probeErr := errors.New("probe down")
	s.FailProbe(probeErr)
	if err := s.Probe(ctx); !errors.Is(err, probeErr) {
		t.Fatalf("expected probe failure, got %v", err)
	}
}
