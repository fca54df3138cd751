package opqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueReturnsOperationResult(t *testing.T) {
	q := New()
	val, err := q.Enqueue(func(context.Context) (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if got := val.(int); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestRetryBackoffThenSuccess(t *testing.T) {
	q := New(WithBaseDelay(time.Millisecond))
	var calls int32
	val, err := q.Enqueue(func(context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if val != "ok" {
		t.Fatalf("unexpected value %v", val)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestRetriesExhaustedReturnsLastError(t *testing.T) {
	q := New(WithBaseDelay(time.Millisecond))
	boom := errors.New("persistent failure")
	var calls int32
	_, err := q.Enqueue(func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	// Initial attempt plus three retries.
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
}

func TestAttemptTimeout(t *testing.T) {
	q := New(WithTimeout(10*time.Millisecond), WithBaseDelay(time.Millisecond), WithMaxRetries(1))
	_, err := q.Enqueue(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestOrderingUnderFailure(t *testing.T) {
	q := New(WithBaseDelay(time.Millisecond))
	var mu sync.Mutex
	var order []string

	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	started := make(chan struct{})

	go func() {
		defer wg.Done()
		_, err := q.Enqueue(func(context.Context) (any, error) {
			select {
			case <-started:
			default:
				close(started)
			}
			return nil, errors.New("always fails")
		})
		if err == nil {
			t.Error("expected first operation to fail")
		}
		record("first")
	}()

	// The first operation is mid-retry before the others join the queue.
	<-started
	go func() {
		defer wg.Done()
		if _, err := q.Enqueue(func(context.Context) (any, error) {
			record("second")
			return nil, nil
		}); err != nil {
			t.Errorf("second operation: %v", err)
		}
	}()
	waitForLen(t, q, 2)
	go func() {
		defer wg.Done()
		if _, err := q.Enqueue(func(context.Context) (any, error) {
			record("third")
			return nil, nil
		}); err != nil {
			t.Errorf("third operation: %v", err)
		}
	}()
	waitForLen(t, q, 3)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 completions, got %v", order)
	}
	second, third := -1, -1
	for i, name := range order {
		switch name {
		case "second":
			second = i
		case "third":
			third = i
		}
	}
	if second == -1 || third == -1 {
		t.Fatalf("missing completions: %v", order)
	}
	if second > third {
		t.Fatalf("expected submission order preserved, got %v", order)
	}
}

func waitForLen(t *testing.T, q *Queue, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for q.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("queue never reached length %d", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSingleFlight(t *testing.T) {
	q := New()
	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Enqueue(func(context.Context) (any, error) {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					prev := atomic.LoadInt32(&maxInFlight)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&maxInFlight); got != 1 {
		t.Fatalf("expected at most one in-flight operation, observed %d", got)
	}
}
