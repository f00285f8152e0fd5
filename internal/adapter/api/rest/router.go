package rest

import (
	"net/http"
)

// NewRouter initializes the HTTP router and registers routes.
func NewRouter(h *Handler, mws ...Middleware) http.Handler {
	mux := http.NewServeMux()

	// Wishlist
	mux.HandleFunc("GET /wishlist/ids", h.ListIDs)
	mux.HandleFunc("PUT /wishlist/ids/{id}", h.AddID)
	mux.HandleFunc("DELETE /wishlist/ids/{id}", h.RemoveID)
	mux.HandleFunc("POST /wishlist/liked", h.IsLiked)
	mux.HandleFunc("POST /wishlist/toggle", h.Toggle)
	mux.HandleFunc("POST /wishlist/sync", h.Sync)

	// Session
	mux.HandleFunc("GET /session", h.GetSession)
	mux.HandleFunc("PUT /session", h.SignIn)
	mux.HandleFunc("DELETE /session", h.SignOut)

	mux.HandleFunc("GET /healthz", h.Health)

	// Wrap with middleware
	return Chain(mux, mws...)
}
