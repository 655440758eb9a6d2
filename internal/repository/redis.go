package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/eek-site/eek-sub001/internal/config"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors surfaced by store operations. Handlers map these to
// HTTP statuses; not-found on read paths is a normal outcome, not an error.
var (
	ErrNotFound        = errors.New("not found")
	ErrConfirmRequired = errors.New("purge requires explicit confirmation")
	ErrDenylisted      = errors.New("identifier matches supplier denylist, refusing to purge")
)

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection if present.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
