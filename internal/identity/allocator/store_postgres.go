package allocator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore backs namespace counters with a single-row upsert. The
// ON CONFLICT increment runs under row-level locking, so the returned value is
// unique per namespace without a caller-side read-modify-write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const nextCounterQuery = `
	INSERT INTO number_counters (namespace, value)
	VALUES ($1, 1)
	ON CONFLICT (namespace)
	DO UPDATE SET value = number_counters.value + 1
	RETURNING value
`

func (s *PostgresStore) Next(ctx context.Context, ns id.Namespace) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, nextCounterQuery, ns.String()).Scan(&n)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return 0, fmt.Errorf("%w: counter %s: %v", sentinel.ErrUnavailable, ns, err)
	case err != nil:
		// Serialization failures under SSI surface here; they are retryable.
		return 0, fmt.Errorf("%w: counter %s: %v", sentinel.ErrAllocationConflict, ns, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: counter %s out of range", sentinel.ErrAllocationConflict, ns)
	}
	return uint64(n), nil
}
