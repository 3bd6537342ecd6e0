package allocator

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// RedisStore backs namespace counters with Redis INCR, which is linearizable
// per key, so a single round trip commits the increment.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, keyPrefix: "carelink:alloc:"}
}

func (s *RedisStore) Next(ctx context.Context, ns id.Namespace) (uint64, error) {
	n, err := s.client.Incr(ctx, s.keyPrefix+ns.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", sentinel.ErrUnavailable, ns, err)
	}
	if n <= 0 {
		// A negative or zero counter means the key was tampered with; refuse
		// to mint from it rather than reuse history.
		return 0, fmt.Errorf("%w: counter %s out of range", sentinel.ErrAllocationConflict, ns)
	}
	return uint64(n), nil
}
