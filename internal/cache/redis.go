package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/readmylips/core/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// KeyForAdmirerCount generates the Redis key for a user's admirer count
func (c *RedisCache) KeyForAdmirerCount(userID uint64) string {
	return fmt.Sprintf("admirers:count:%d", userID)
}

func (c *RedisCache) UpdateAdmirerCount(ctx context.Context, userID uint64, count int64) error {
	key := c.KeyForAdmirerCount(userID)
	// Always refresh TTL when updating
	return c.Client.Set(ctx, key, count, time.Hour).Err()
}

func (c *RedisCache) GetAdmirerCount(ctx context.Context, userID uint64) (int64, error) {
	key := c.KeyForAdmirerCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil // cache miss
	} else if err != nil {
		return 0, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	return strconv.ParseInt(val, 10, 64)
}

// KeyForConversation generates the pub/sub channel for a conversation.
func (c *RedisCache) KeyForConversation(conversationID string) string {
	return "chat:conv:" + conversationID
}

// PublishConversationEvent wakes up subscribers of a conversation. The
// payload is advisory only; subscribers re-read from the store, so a
// lost or reordered event costs latency, never correctness.
func (c *RedisCache) PublishConversationEvent(ctx context.Context, conversationID string) error {
	return c.Client.Publish(ctx, c.KeyForConversation(conversationID), "new").Err()
}

// SubscribeConversation opens a pub/sub subscription for a conversation.
// The caller owns the returned PubSub and must Close it.
func (c *RedisCache) SubscribeConversation(ctx context.Context, conversationID string) *redis.PubSub {
	return c.Client.Subscribe(ctx, c.KeyForConversation(conversationID))
}
