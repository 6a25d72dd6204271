package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// RedisUserCache stores the cache as a Redis list: RPUSH appends, LRANGE
// reads back in insertion order.
type RedisUserCache struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisUserCache creates a cache on its own client.
func NewRedisUserCache(addr, password string, db int, key string, logger *zap.Logger) *RedisUserCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisUserCacheWithClient(client, key, logger)
}

func NewRedisUserCacheWithClient(client *redis.Client, key string, logger *zap.Logger) *RedisUserCache {
	return &RedisUserCache{client: client, key: key, logger: logger}
}

func (c *RedisUserCache) Load(ctx context.Context) []domain.UserID {
	vals, err := c.client.LRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		c.logger.Warn("error loading user cache", zap.String("key", c.key), zap.Error(err))
		return []domain.UserID{}
	}
	return lo.Map(vals, func(v string, _ int) domain.UserID { return domain.UserID(v) })
}

func (c *RedisUserCache) Append(ctx context.Context, ids []domain.UserID) error {
	if len(ids) == 0 {
		return nil
	}
	vals := lo.Map(ids, func(id domain.UserID, _ int) any { return string(id) })
	if err := c.client.RPush(ctx, c.key, vals...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", c.key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisUserCache) Close() error {
	return c.client.Close()
}

var _ UserCache = (*RedisUserCache)(nil)
