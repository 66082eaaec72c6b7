package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"medorder/backend/internal/domain"
)

type RedisDraftCache struct {
	client *redis.Client
}

func NewRedisDraftCache(addr string, password string, db int) *RedisDraftCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDraftCache{client: client}
}

func (c *RedisDraftCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDraftCache) Close() error {
	return c.client.Close()
}

func (c *RedisDraftCache) Get(ctx context.Context, key string) (*domain.CustomerDraft, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var draft domain.CustomerDraft
	if err := msgpack.Unmarshal(val, &draft); err != nil {
		return nil, false, err
	}
	return &draft, true, nil
}

func (c *RedisDraftCache) Set(ctx context.Context, key string, value *domain.CustomerDraft, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisDraftCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
