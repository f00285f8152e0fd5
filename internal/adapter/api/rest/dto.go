package rest

import (
	"net/http"

	"go-wishlist-sync/internal/core/domain/wishlist"
)

type idsResponse struct {
	IDs           []string `json:"ids"`
	Authenticated bool     `json:"authenticated"`
}

type likedResponse struct {
	ExternalID string `json:"externalId,omitempty"`
	Liked      bool   `json:"liked"`
}

// toggleResponse is returned while the remote call is still in flight.
type toggleResponse struct {
	ExternalID string `json:"externalId"`
	Liked      bool   `json:"liked"`
	Pending    bool   `json:"pending"`
}

type signInRequest struct {
	Token string `json:"token"`
}

// statusForOutcome maps a resolved toggle to the HTTP status it is served with.
func statusForOutcome(outcome wishlist.Outcome) int {
	switch outcome {
	case wishlist.OutcomeLiked, wishlist.OutcomeUnliked:
		return http.StatusOK
	case wishlist.OutcomeRequiresAuth:
		return http.StatusUnauthorized
	case wishlist.OutcomeNoIdentifier, wishlist.OutcomeInvalidProductData:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
