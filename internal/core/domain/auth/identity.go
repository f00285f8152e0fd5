package auth

import (
	"errors"
	"time"
)

// Identity is the current session identity as seen by the client.
// The zero value is the guest (logged-out) identity.
type Identity struct {
	Subject       string    `json:"subject,omitempty"`
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
}

// Guest returns the unauthenticated identity.
func Guest() Identity {
	return Identity{}
}

func (i Identity) Validate() error {
	if !i.Authenticated {
		return nil
	}
	if i.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// Expired reports whether the identity carries an expiry that has passed at now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// SameSession reports whether both identities refer to the same authenticated subject.
func (i Identity) SameSession(other Identity) bool {
	return i.Authenticated == other.Authenticated && i.Subject == other.Subject
}
