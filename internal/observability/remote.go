package observability

import (
	"context"
	"errors"
	"time"

	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"
)

// InstrumentedRemote records latency of remote wishlist calls, labelled by failure kind.
type InstrumentedRemote struct {
	inner ports.WishlistRemote
}

func NewInstrumentedRemote(inner ports.WishlistRemote) *InstrumentedRemote {
	return &InstrumentedRemote{inner: inner}
}

var _ ports.WishlistRemote = (*InstrumentedRemote)(nil)

func (r *InstrumentedRemote) List(ctx context.Context) (wishlist.RemoteList, error) {
	start := time.Now()
	list, err := r.inner.List(ctx)
	remoteLatency.WithLabelValues("list", remoteResult(err)).Observe(time.Since(start).Seconds())
	return list, err
}

func (r *InstrumentedRemote) Add(ctx context.Context, entry wishlist.Entry) (wishlist.RemoteList, error) {
	start := time.Now()
	list, err := r.inner.Add(ctx, entry)
	remoteLatency.WithLabelValues("add", remoteResult(err)).Observe(time.Since(start).Seconds())
	return list, err
}

func (r *InstrumentedRemote) Remove(ctx context.Context, externalID string) (wishlist.RemoteList, error) {
	start := time.Now()
	list, err := r.inner.Remove(ctx, externalID)
	remoteLatency.WithLabelValues("remove", remoteResult(err)).Observe(time.Since(start).Seconds())
	return list, err
}

func remoteResult(err error) string {
	var remoteErr *wishlist.RemoteError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &remoteErr):
		return string(remoteErr.Kind)
	default:
		return "error"
	}
}
