package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDeduper struct {
	client *redis.Client
	prefix string
}

func NewDeduper(client *redis.Client, prefix string) *RedisDeduper {
	return &RedisDeduper{
		client: client,
		prefix: prefix,
	}
}

func (d *RedisDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := d.client.SetNX(ctx, d.prefix+":"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: %w", err)
	}
	return !set, nil
}
