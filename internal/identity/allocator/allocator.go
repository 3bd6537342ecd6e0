// Package allocator issues readable numbers: role-prefixed sequential
// identifiers (p1, b1, a1, c1) that are unique and strictly increasing per
// namespace for the namespace's entire history. Numbers are never recycled,
// even when the owning entity is removed.
package allocator

import (
	"context"
	"errors"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
)

// CounterStore commits the next value of a namespace counter. Implementations
// must make the increment linearizable per namespace: two concurrent calls
// never observe the same value. A lost commit race surfaces as
// sentinel.ErrAllocationConflict and is safe to retry.
type CounterStore interface {
	Next(ctx context.Context, ns id.Namespace) (uint64, error)
}

// Allocator wraps a CounterStore with bounded retry and backoff on commit
// races. It is the only retry loop in the numbering path; stores stay
// single-attempt.
type Allocator struct {
	store       CounterStore
	maxAttempts int
	backoff     time.Duration
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts bounds retries of a conflicting counter commit.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between conflicting attempts.
func WithBackoff(d time.Duration) Option {
	return func(a *Allocator) { a.backoff = d }
}

func New(store CounterStore, opts ...Option) *Allocator {
	a := &Allocator{
		store:       store,
		maxAttempts: 5,
		backoff:     10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate mints the next readable number for the namespace.
//
// Errors: CodeInvalidInput for an unknown namespace, CodeAllocationConflict
// when the counter commit keeps racing past the attempt bound (callers retry
// with backoff), CodeUnavailable when the backing store is unreachable.
func (a *Allocator) Allocate(ctx context.Context, ns id.Namespace) (id.ReadableNumber, error) {
	if !ns.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid numbering namespace")
	}

	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			// Linear backoff; contention on a single counter clears quickly.
			select {
			case <-ctx.Done():
				return "", dErrors.Wrap(ctx.Err(), dErrors.CodeUnavailable, "allocation cancelled")
			case <-time.After(time.Duration(attempt) * a.backoff):
			}
		}

		n, err := a.store.Next(ctx, ns)
		if err == nil {
			return id.FormatNumber(ns, n)
		}
		lastErr = err

		if errors.Is(err, sentinel.ErrAllocationConflict) {
			continue
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "numbering store unavailable")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate number")
	}
	return "", dErrors.Wrap(lastErr, dErrors.CodeAllocationConflict, "number allocation kept conflicting")
}
