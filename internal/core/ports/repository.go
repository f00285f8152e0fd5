package ports

import (
	"context"
)

// KeyValueStore is the durable string key-value persistence used by the liked-set cache.
type KeyValueStore interface {
	// GetItem returns the stored value. found is false when the key does not exist.
	GetItem(ctx context.Context, key string) (value string, found bool, err error)

	// SetItem stores value under key, overwriting any previous value.
	SetItem(ctx context.Context, key, value string) error
}
