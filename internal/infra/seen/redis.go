package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/byigitt/visa-checker/internal/domain/appointment"
)

var _ appointment.SeenStore = (*RedisStore)(nil)

// RedisStore tracks appointment sightings in Redis so restarts do not
// re-alert on slots already reported. Each key is a per-state counter with a
// TTL refreshed on every sighting.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed seen store.
func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Touch increments and returns the sighting count for a key.
func (s *RedisStore) Touch(ctx context.Context, key string) (int64, error) {
	fullKey := "visa-checker:seen:" + key

	pipe := s.client.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("touching seen key: %w", err)
	}

	return incrCmd.Val(), nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
