package allocator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
)

func TestAllocate_SequentialPerNamespace(t *testing.T) {
	ctx := context.Background()
	alloc := New(NewInMemoryStore())

	for i := 1; i <= 3; i++ {
		num, err := alloc.Allocate(ctx, id.NamespaceParent)
		require.NoError(t, err)
		assert.Equal(t, id.ReadableNumber(fmt.Sprintf("p%d", i)), num)
	}

	// Namespaces count independently.
	num, err := alloc.Allocate(ctx, id.NamespaceSitter)
	require.NoError(t, err)
	assert.Equal(t, id.ReadableNumber("b1"), num)

	num, err = alloc.Allocate(ctx, id.NamespaceChild)
	require.NoError(t, err)
	assert.Equal(t, id.ReadableNumber("c1"), num)
}

func TestAllocate_RejectsUnknownNamespace(t *testing.T) {
	alloc := New(NewInMemoryStore())
	_, err := alloc.Allocate(context.Background(), id.Namespace("pet"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestAllocate_ConcurrentNoDuplicates verifies the core numbering property:
// N concurrent allocations in one namespace return exactly {b1 .. bN}.
func TestAllocate_ConcurrentNoDuplicates(t *testing.T) {
	const n = 100
	ctx := context.Background()
	alloc := New(NewInMemoryStore())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[id.ReadableNumber]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Allocate(ctx, id.NamespaceSitter)
			assert.NoError(t, err)
			mu.Lock()
			results[num] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, results, n, "duplicate numbers were issued")
	for i := 1; i <= n; i++ {
		_, ok := results[id.ReadableNumber(fmt.Sprintf("b%d", i))]
		assert.True(t, ok, "b%d missing from issued set", i)
	}
}

// conflictingStore fails a fixed number of commits before succeeding.
type conflictingStore struct {
	inner     CounterStore
	failures  int
	permanent error
}

func (s *conflictingStore) Next(ctx context.Context, ns id.Namespace) (uint64, error) {
	if s.permanent != nil {
		return 0, s.permanent
	}
	if s.failures > 0 {
		s.failures--
		return 0, sentinel.ErrAllocationConflict
	}
	return s.inner.Next(ctx, ns)
}

func TestAllocate_RetriesConflictsWithinBound(t *testing.T) {
	store := &conflictingStore{inner: NewInMemoryStore(), failures: 2}
	alloc := New(store, WithMaxAttempts(4), WithBackoff(time.Millisecond))

	num, err := alloc.Allocate(context.Background(), id.NamespaceAdmin)
	require.NoError(t, err)
	assert.Equal(t, id.ReadableNumber("a1"), num)
}

func TestAllocate_SurfacesAllocationConflictAfterBound(t *testing.T) {
	store := &conflictingStore{inner: NewInMemoryStore(), failures: 10}
	alloc := New(store, WithMaxAttempts(3), WithBackoff(time.Millisecond))

	_, err := alloc.Allocate(context.Background(), id.NamespaceAdmin)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAllocationConflict))
	assert.True(t, dErrors.Retryable(err))
}

func TestAllocate_UnavailableIsNotRetriedInternally(t *testing.T) {
	store := &conflictingStore{inner: NewInMemoryStore(), permanent: sentinel.ErrUnavailable}
	alloc := New(store, WithMaxAttempts(3), WithBackoff(time.Millisecond))

	_, err := alloc.Allocate(context.Background(), id.NamespaceParent)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
