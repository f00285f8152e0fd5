package wishlist

import "errors"

// Outcome is the user-facing classification of a toggle.
type Outcome string

const (
	OutcomeLiked              Outcome = "liked"
	OutcomeUnliked            Outcome = "unliked"
	OutcomeRequiresAuth       Outcome = "requires_authentication"
	OutcomeNoIdentifier       Outcome = "no_identifier"
	OutcomeInvalidProductData Outcome = "invalid_product_data"
	OutcomeRemoteFailed       Outcome = "remote_failed"
)

// Result is what a toggle resolves to once the remote call (if any) has completed.
// Failures are values here: Err is set but nothing is ever panicked or blocked on.
type Result struct {
	ExternalID string  `json:"externalId,omitempty"`
	Liked      bool    `json:"liked"`
	Outcome    Outcome `json:"outcome"`
	Message    string  `json:"message,omitempty"`
	Err        error   `json:"-"`

	// Reconciled is set when an authoritative list from the server was applied.
	Reconciled bool `json:"reconciled,omitempty"`
	// Stale is set when the server response was discarded because a newer
	// mutation for the same id had been issued.
	Stale bool `json:"stale,omitempty"`
	// RolledBack is set when strict mode reverted the optimistic mutation.
	RolledBack bool `json:"rolledBack,omitempty"`
}

// OK reports whether the toggle fully succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// OutcomeFor maps a pre-network rejection to its outcome.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeRequiresAuth
	case errors.Is(err, ErrUnresolvableIdentifier):
		return OutcomeNoIdentifier
	case errors.Is(err, ErrInvalidProductData):
		return OutcomeInvalidProductData
	default:
		return OutcomeRemoteFailed
	}
}
