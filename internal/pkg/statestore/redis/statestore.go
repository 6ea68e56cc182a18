package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Put(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+":"+state, 1, ttl).Err(); err != nil {
		return fmt.Errorf("statestore: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, state string) (bool, error) {
	deleted, err := s.client.Del(ctx, s.prefix+":"+state).Result()
	if err != nil {
		return false, fmt.Errorf("statestore: %w", err)
	}
	return deleted > 0, nil
}
