package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEphemeralStore backs presence and typing entries with TTL'd
// keys. Expiry clears an unrenewed "online" status implicitly.
type RedisEphemeralStore struct {
	rdb *redis.Client
}

func NewRedisEphemeralStore(rdb *redis.Client) *RedisEphemeralStore {
	return &RedisEphemeralStore{rdb: rdb}
}

func (s *RedisEphemeralStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisEphemeralStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisEphemeralStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
