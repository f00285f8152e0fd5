package redis

import (
	"context"
	"errors"
	"fmt"

	"go-wishlist-sync/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// Adapter is a KeyValueStore backed by plain redis string keys.
type Adapter struct {
	client *redis.Client
}

func NewAdapter(addr string) *Adapter {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Adapter{client: rdb}
}

// NewAdapterFromClient wraps an existing client.
func NewAdapterFromClient(client *redis.Client) *Adapter {
	return &Adapter{client: client}
}

// Ensure Adapter implements ports.KeyValueStore
var _ ports.KeyValueStore = (*Adapter)(nil)

// GetItem returns the value stored at key. A missing key is not an error.
func (a *Adapter) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, true, nil
}

// SetItem stores value at key without expiry; the liked set lives until overwritten.
func (a *Adapter) SetItem(ctx context.Context, key, value string) error {
	if err := a.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
