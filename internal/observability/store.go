package observability

import (
	"context"

	"go-wishlist-sync/internal/core/ports"
)

// InstrumentedStore is a decorator to intercept store calls and record metrics.
type InstrumentedStore struct {
	inner ports.KeyValueStore
}

// NewInstrumentedStore creates a new instrumented store wrapper.
func NewInstrumentedStore(inner ports.KeyValueStore) *InstrumentedStore {
	return &InstrumentedStore{inner: inner}
}

var _ ports.KeyValueStore = (*InstrumentedStore)(nil)

func (s *InstrumentedStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, found, err := s.inner.GetItem(ctx, key)
	switch {
	case err != nil:
		storeOps.WithLabelValues("get", "error").Inc()
	case found:
		storeOps.WithLabelValues("get", "hit").Inc()
	default:
		storeOps.WithLabelValues("get", "miss").Inc()
	}
	return val, found, err
}

func (s *InstrumentedStore) SetItem(ctx context.Context, key, value string) error {
	err := s.inner.SetItem(ctx, key, value)
	storeOps.WithLabelValues("set", resultLabel(err)).Inc()
	return err
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
