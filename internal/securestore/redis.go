package securestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores sealed values as plain Redis strings and keeps token
// expiries in a sorted set so the refresh job can find them.
type RedisBackend struct {
	client   redis.UniversalClient
	indexKey string
}

var (
	_ Backend     = (*RedisBackend)(nil)
	_ ExpiryIndex = (*RedisBackend)(nil)
)

func NewRedisBackend(client redis.UniversalClient, indexKey string) *RedisBackend {
	if indexKey == "" {
		indexKey = "crosspost:expiry"
	}
	return &RedisBackend{client: client, indexKey: indexKey}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load secure item: %w", err)
	}
	return value, nil
}

func (b *RedisBackend) Apply(ctx context.Context, ops ...Op) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.Delete {
				pipe.Del(ctx, op.Key)
				pipe.ZRem(ctx, b.indexKey, op.Key)
				continue
			}
			pipe.Set(ctx, op.Key, op.Value, 0)
			if op.ExpiresAt != nil {
				pipe.ZAdd(ctx, b.indexKey, redis.Z{Score: float64(op.ExpiresAt.Unix()), Member: op.Key})
			} else {
				pipe.ZRem(ctx, b.indexKey, op.Key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist secure items: %w", err)
	}
	return nil
}

func (b *RedisBackend) Expiring(ctx context.Context, after, before time.Time) ([]string, error) {
	keys, err := b.client.ZRangeByScore(ctx, b.indexKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(after.Unix(), 10),
		Max: "(" + strconv.FormatInt(before.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expiring items: %w", err)
	}
	return keys, nil
}
