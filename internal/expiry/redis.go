package expiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps expiries in Redis. SETNX gives the single-creator guarantee.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetOrCreate(ctx context.Context, key string, value time.Time) (time.Time, bool, error) {
	if key == "" {
		return time.Time{}, false, ErrInvalidKey
	}

	encoded := value.UTC().Format(time.RFC3339Nano)
	ok, err := s.client.SetNX(ctx, key, encoded, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if ok {
		return value.UTC(), true, nil
	}

	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Evicted between SETNX and GET.
		return s.GetOrCreate(ctx, key, value)
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	stored, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return stored.UTC(), false, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
