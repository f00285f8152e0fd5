package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go-wishlist-sync/internal/core/domain/auth"
	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
)

// CacheState is the externally visible state of the liked-set cache.
type CacheState string

const (
	// StateMasked: identity is unauthenticated, the effective set is empty.
	StateMasked CacheState = "masked"
	// StateActive: identity is authenticated, the set reflects persisted content.
	StateActive CacheState = "active"
)

const likedKeyPrefix = "wishlist:liked:"

// LikedKey returns the persistence key of the liked set for subject.
// The subject is hashed so stored keys never carry raw account ids.
func LikedKey(subject string) string {
	sum := blake2b.Sum256([]byte(subject))
	return likedKeyPrefix + hex.EncodeToString(sum[:])
}

// LikedCache holds the best-known liked set in memory for synchronous reads,
// backed by a KeyValueStore and scoped to the current identity.
type LikedCache struct {
	store    ports.KeyValueStore
	identity ports.IdentityProvider
	logger   *slog.Logger

	mu      sync.RWMutex
	state   CacheState
	subject string
	ids     []string
	index   map[string]struct{}
	version uint64

	// persistMu serializes writes; each write takes the snapshot under it,
	// so the last write always carries the latest set.
	persistMu sync.Mutex
}

var _ ports.LikedCache = (*LikedCache)(nil)

func NewLikedCache(store ports.KeyValueStore, identity ports.IdentityProvider, logger *slog.Logger) *LikedCache {
	return &LikedCache{
		store:    store,
		identity: identity,
		logger:   logger,
		state:    StateMasked,
		index:    make(map[string]struct{}),
	}
}

// State returns the current cache state.
func (c *LikedCache) State() CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Load replaces the in-memory set with the persisted one for the current identity.
// A guest identity yields an empty set without reading storage. Read or parse failures
// degrade to an empty set; the returned error is informational.
func (c *LikedCache) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "LikedCache.Load")
	defer span.End()

	current := c.identity.Current()
	if !current.Authenticated {
		c.Mask()
		return nil
	}

	c.mu.RLock()
	startVersion := c.version
	c.mu.RUnlock()

	raw, found, readErr := c.store.GetItem(ctx, LikedKey(current.Subject))

	var ids []string
	var loadErr error
	switch {
	case readErr != nil:
		loadErr = fmt.Errorf("%w: read liked ids: %w", wishlist.ErrPersistence, readErr)
	case found:
		parsed, err := parseLikedIDs(raw)
		if err != nil {
			loadErr = fmt.Errorf("%w: parse liked ids: %w", wishlist.ErrPersistence, err)
		} else {
			ids = parsed
		}
	}
	if loadErr != nil {
		span.RecordError(loadErr)
		c.logger.WarnContext(ctx, "failed to load liked ids, starting empty", "error", loadErr)
	}

	// The identity may have changed while we were reading.
	if !c.identity.Current().SameSession(current) {
		return loadErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateActive && c.subject == current.Subject && c.version != startVersion {
		// Local mutations happened during the read and were persisted after it.
		return loadErr
	}
	c.state = StateActive
	c.subject = current.Subject
	c.setLocked(ids)

	span.SetAttributes(attribute.Int("liked.count", len(c.ids)))
	return loadErr
}

// Mask hides the in-memory set. Persisted storage is left untouched so a later
// session of the same identity can resume from it.
func (c *LikedCache) Mask() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateMasked
	c.subject = ""
	c.setLocked(nil)
}

// Watch follows identity changes: authentication (or an account switch) loads the
// identity's set, logout masks it. It returns a func that stops watching.
// The event payload is ignored: every event resyncs to provider.Current().
func (c *LikedCache) Watch(ctx context.Context, provider ports.IdentityProvider) func() {
	return provider.Subscribe(func(auth.Identity) {
		if !provider.Current().Authenticated {
			c.logger.InfoContext(ctx, "identity signed out, masking liked ids")
		} else {
			c.logger.InfoContext(ctx, "identity signed in, loading liked ids")
		}
		// Load masks for a guest and reloads for an authenticated identity.
		if err := c.Load(ctx); err != nil {
			c.logger.WarnContext(ctx, "liked ids load degraded", "error", err)
		}
	})
}

// Contains reports whether any of the candidate ids is liked.
// It is always false while the identity is unauthenticated.
func (c *LikedCache) Contains(candidates ...string) bool {
	current := c.identity.Current()
	if !current.Authenticated {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.activeForLocked(current) {
		return false
	}
	for _, candidate := range candidates {
		if id := wishlist.NormalizeID(candidate); id != "" {
			if _, ok := c.index[id]; ok {
				return true
			}
		}
	}
	return false
}

// IDs returns a snapshot of the liked ids; empty while masked.
func (c *LikedCache) IDs() []string {
	current := c.identity.Current()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !current.Authenticated || !c.activeForLocked(current) {
		return []string{}
	}
	return slices.Clone(c.ids)
}

// Add appends id. Adding an id that is already present changes nothing and writes nothing.
func (c *LikedCache) Add(ctx context.Context, id string) error {
	id = wishlist.NormalizeID(id)
	if id == "" {
		return wishlist.ErrUnresolvableIdentifier
	}
	current := c.identity.Current()

	c.mu.Lock()
	if !current.Authenticated || !c.activeForLocked(current) {
		c.mu.Unlock()
		return wishlist.ErrUnauthenticated
	}
	if _, ok := c.index[id]; ok {
		c.mu.Unlock()
		return nil
	}
	c.ids = append(c.ids, id)
	c.index[id] = struct{}{}
	c.version++
	c.mu.Unlock()

	return c.persist(ctx, current.Subject)
}

// Remove deletes id and persists the result, even when id was absent or the set is now empty.
func (c *LikedCache) Remove(ctx context.Context, id string) error {
	id = wishlist.NormalizeID(id)
	current := c.identity.Current()

	c.mu.Lock()
	if !current.Authenticated || !c.activeForLocked(current) {
		c.mu.Unlock()
		return wishlist.ErrUnauthenticated
	}
	if _, ok := c.index[id]; ok {
		delete(c.index, id)
		c.ids = slices.DeleteFunc(c.ids, func(v string) bool { return v == id })
	}
	c.version++
	c.mu.Unlock()

	return c.persist(ctx, current.Subject)
}

// ReplaceAll overwrites the set with an authoritative list.
func (c *LikedCache) ReplaceAll(ctx context.Context, ids []string) error {
	normalized := wishlist.NormalizeIDs(ids)
	current := c.identity.Current()

	c.mu.Lock()
	if !current.Authenticated || !c.activeForLocked(current) {
		c.mu.Unlock()
		return wishlist.ErrUnauthenticated
	}
	c.setLocked(normalized)
	c.version++
	c.mu.Unlock()

	return c.persist(ctx, current.Subject)
}

// Update replaces the set with fn's result, computed under the cache lock so no other
// mutation interleaves with it. fn returning false leaves the set untouched and writes
// nothing. Persistence happens after the lock is released.
func (c *LikedCache) Update(ctx context.Context, fn func(ids []string) ([]string, bool)) error {
	current := c.identity.Current()

	c.mu.Lock()
	if !current.Authenticated || !c.activeForLocked(current) {
		c.mu.Unlock()
		return wishlist.ErrUnauthenticated
	}
	next, ok := fn(slices.Clone(c.ids))
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.setLocked(wishlist.NormalizeIDs(next))
	c.version++
	c.mu.Unlock()

	return c.persist(ctx, current.Subject)
}

// persist writes the current set of subject. The in-memory state is never rolled back
// when the write fails.
func (c *LikedCache) persist(ctx context.Context, subject string) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	if c.state != StateActive || c.subject != subject {
		// Masked or switched identity since the mutation; nothing to write for subject.
		c.mu.RUnlock()
		return nil
	}
	snapshot := slices.Clone(c.ids)
	c.mu.RUnlock()

	if snapshot == nil {
		snapshot = []string{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: marshal liked ids: %w", wishlist.ErrPersistence, err)
	}

	if err := c.store.SetItem(ctx, LikedKey(subject), string(data)); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		c.logger.WarnContext(ctx, "failed to persist liked ids", "count", len(snapshot), "error", err)
		return fmt.Errorf("%w: write liked ids: %w", wishlist.ErrPersistence, err)
	}
	return nil
}

func (c *LikedCache) activeForLocked(current auth.Identity) bool {
	return c.state == StateActive && c.subject == current.Subject
}

func (c *LikedCache) setLocked(ids []string) {
	c.ids = ids
	c.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.index[id] = struct{}{}
	}
}

// parseLikedIDs decodes the persisted JSON array. Elements of any JSON type are
// coerced to strings; null, booleans and empty strings are dropped.
func parseLikedIDs(raw string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return wishlist.NormalizeIDs(values), nil
}
