package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"piececore/internal/infra/kv/memory"
	"piececore/internal/opqueue"
	"piececore/pkg/domain"
)

func testClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func newTestCache(t *testing.T, at *time.Time) (*Cache, *memory.Store) {
	t.Helper()
	kv := memory.NewStore()
	queue := opqueue.New(opqueue.WithBaseDelay(time.Millisecond))
	return New(kv, queue, WithClock(testClock(at))), kv
}

func pieces(apns ...string) []domain.Piece {
	out := make([]domain.Piece, 0, len(apns))
	for _, apn := range apns {
		out = append(out, domain.Piece{APN: apn, HolderName: []string{}})
	}
	return out
}

func TestGetMissReturnsNil(t *testing.T) {
	at := time.Now()
	c, _ := newTestCache(t, &at)
	if got := c.Get(); got != nil {
		t.Fatalf("expected nil on empty cache, got %v", got)
	}
}

func TestSetThenGet(t *testing.T) {
	at := time.Now()
	c, _ := newTestCache(t, &at)
	c.Set(pieces("A1", "B2"))
	got := c.Get()
	if len(got) != 2 || got[0].APN != "A1" || got[1].APN != "B2" {
		t.Fatalf("unexpected snapshot %v", got)
	}
}

func TestExpiryBoundary(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	c.Set(pieces("A1"))

	at = at.Add(4*time.Minute + 59*time.Second)
	if got := c.Get(); len(got) != 1 {
		t.Fatalf("expected fresh entry just under the expiry, got %v", got)
	}

	at = at.Add(2 * time.Second)
	if got := c.Get(); got != nil {
		t.Fatalf("expected nil past the expiry, got %v", got)
	}

	// The stale entry is purged in the background.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, ok, err := kv.GetItem(context.Background(), Key)
		if err == nil && !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stale entry was never purged")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLegacyBareArray(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	raw, err := json.Marshal(pieces("L1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := kv.SetItem(context.Background(), Key, raw); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got := c.Get()
	if len(got) != 1 || got[0].APN != "L1" {
		t.Fatalf("expected legacy snapshot to load, got %v", got)
	}
}

func TestSetNilIsNoOp(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	c.Set(nil)
	if kv.Ops() != 0 {
		t.Fatalf("expected no store access for nil snapshot, got %d ops", kv.Ops())
	}
}

func TestInvalidate(t *testing.T) {
	at := time.Now()
	c, _ := newTestCache(t, &at)
	c.Set(pieces("A1"))
	c.Invalidate()
	if got := c.Get(); got != nil {
		t.Fatalf("expected nil after invalidation, got %v", got)
	}
}

func TestReadFailureDegradesToNil(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	c.Set(pieces("A1"))
	// Fail the read attempt and every retry.
	kv.FailNext(4, errors.New("disk error"))
	if got := c.Get(); got != nil {
		t.Fatalf("expected nil on persistent read failure, got %v", got)
	}
	if got := c.Get(); len(got) != 1 {
		t.Fatalf("expected recovery after failures cleared, got %v", got)
	}
}

func TestTransientFailureRetried(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	c.Set(pieces("A1"))
	kv.FailNext(2, errors.New("transient"))
	if got := c.Get(); len(got) != 1 {
		t.Fatalf("expected retries to recover the read, got %v", got)
	}
}

func TestMalformedEntryReturnsNil(t *testing.T) {
	at := time.Now()
	c, kv := newTestCache(t, &at)
	if err := kv.SetItem(context.Background(), Key, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := c.Get(); got != nil {
		t.Fatalf("expected nil for malformed entry, got %v", got)
	}
}
