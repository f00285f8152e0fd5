package ports

import (
	"context"

	"go-wishlist-sync/internal/core/domain/auth"
	"go-wishlist-sync/internal/core/domain/wishlist"
)

// WishlistRemote is the request/response contract against the remote wishlist collection.
// Every error returned is a *wishlist.RemoteError.
type WishlistRemote interface {
	// List fetches the full collection for the current identity.
	List(ctx context.Context) (wishlist.RemoteList, error)

	// Add submits a new entry. The returned list may not be authoritative.
	Add(ctx context.Context, entry wishlist.Entry) (wishlist.RemoteList, error)

	// Remove deletes by external id only.
	Remove(ctx context.Context, externalID string) (wishlist.RemoteList, error)
}

// IdentityProvider exposes the current identity and its changes.
type IdentityProvider interface {
	Current() auth.Identity

	// Subscribe registers fn for identity changes and returns a func that removes it.
	Subscribe(fn func(auth.Identity)) (unsubscribe func())
}

// TokenSource supplies the bearer token for remote calls, if any.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Notifier receives toggle results for transient user notifications.
type Notifier interface {
	Notify(ctx context.Context, result wishlist.Result)
}

// LikedCache is the identity-gated liked-set cache.
type LikedCache interface {
	Load(ctx context.Context) error
	Contains(candidates ...string) bool
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, ids []string) error
	// Update applies fn to the current set atomically; fn returning false skips the write.
	Update(ctx context.Context, fn func(ids []string) ([]string, bool)) error
	IDs() []string
}

// WishlistService is the application surface consumed by UI adapters.
type WishlistService interface {
	IsProductLiked(ref wishlist.ProductRef) bool
	ExternalIDs() []string
	AddExternalID(ctx context.Context, id string) error
	RemoveExternalID(ctx context.Context, id string) error
	Toggle(ctx context.Context, ref wishlist.ProductRef) Mutation
	Refresh(ctx context.Context) error
}

// Mutation is the handle of an in-flight toggle.
type Mutation interface {
	// ExternalID is the resolved identifier, empty when unresolvable.
	ExternalID() string
	// Liked is the state visible to readers right after the optimistic mutation.
	Liked() bool
	// Done is closed once the result is available.
	Done() <-chan struct{}
	// Wait blocks until the result is available or ctx ends.
	Wait(ctx context.Context) (wishlist.Result, error)
}

// SessionManager signs the agent in and out of the remote account.
type SessionManager interface {
	IdentityProvider
	SignIn(ctx context.Context, token string) (auth.Identity, error)
	SignOut(ctx context.Context)
}
