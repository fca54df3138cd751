// Package opqueue serializes asynchronous operations against the local
// persistent store. The queue is strict FIFO with at most one operation in
// flight, which keeps concurrent cache reads, writes, and invalidations from
// interleaving on the same store key. Each attempt races a fixed timeout and
// failures retry with exponential backoff before the original caller sees
// the last error.
package opqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"piececore/pkg/domain"
)

// ErrTimeout is returned when a single attempt exceeds the per-operation
// timeout. Timeouts count as failures and are retried like any other error.
var ErrTimeout = errors.New("local store operation timeout")

const (
	defaultTimeout    = 10 * time.Second
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxRetries = 3
)

// Operation is a unit of work against the local store.
type Operation func(ctx context.Context) (any, error)

type result struct {
	val any
	err error
}

type item struct {
	op      Operation
	retries int
	done    chan result
}

// Queue is a FIFO, single-flight, retrying executor. The zero value is not
// usable; construct with New.
type Queue struct {
	mu         sync.Mutex
	items      []*item
	processing bool

	timeout    time.Duration
	baseDelay  time.Duration
	maxRetries int
	logger     domain.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option { return func(q *Queue) { q.timeout = d } }

// WithBaseDelay overrides the backoff base delay.
func WithBaseDelay(d time.Duration) Option { return func(q *Queue) { q.baseDelay = d } }

// WithMaxRetries overrides the retry budget per operation.
func WithMaxRetries(n int) Option { return func(q *Queue) { q.maxRetries = n } }

// WithLogger wires a logger for retry warnings.
func WithLogger(l domain.Logger) Option { return func(q *Queue) { q.logger = l } }

// New constructs a queue with the production defaults: 10s attempt timeout,
// 3 retries, 100ms backoff base (delays of 200/400/800ms).
func New(opts ...Option) *Queue {
	q := &Queue{
		timeout:    defaultTimeout,
		baseDelay:  defaultBaseDelay,
		maxRetries: defaultMaxRetries,
		logger:     domain.NopLogger{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends op and blocks until it resolves. Operations execute in
// submission order, one at a time; a failed operation rejects only its own
// caller and never blocks or aborts later items. The queue owns attempt
// timeouts, so op must honor its context.
func (q *Queue) Enqueue(op Operation) (any, error) {
	it := &item{op: op, done: make(chan result, 1)}

	q.mu.Lock()
	q.items = append(q.items, it)
	start := !q.processing
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	r := <-it.done
	return r.val, r.err
}

// Len reports the number of queued operations, including the one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// drain processes items until the queue empties. Exactly one drain loop runs
// at a time; the processing flag is the reentrancy guard.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		it := q.items[0]
		q.mu.Unlock()

		val, err := q.runWithRetry(it)

		q.mu.Lock()
		q.items = q.items[1:]
		q.mu.Unlock()

		it.done <- result{val: val, err: err}
	}
}

// runWithRetry executes the item's operation with a bounded retry loop.
func (q *Queue) runWithRetry(it *item) (any, error) {
	var lastErr error
	for {
		val, err := q.attempt(it.op)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if it.retries >= q.maxRetries {
			return nil, lastErr
		}
		it.retries++
		delay := q.baseDelay * (1 << it.retries)
		q.logger.Warn("local store operation failed, retrying",
			"retry", it.retries, "max", q.maxRetries, "delay", delay, "error", err)
		time.Sleep(delay)
	}
}

// attempt races one execution of op against the timeout. The operation
// goroutine is left to finish on its own after a timeout; its context is
// cancelled so well-behaved store calls unwind promptly.
func (q *Queue) attempt(op Operation) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		val, err := op(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}
