package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"
)

type Handler struct {
	service ports.WishlistService
	session ports.SessionManager
	logger  *slog.Logger
}

func NewHandler(service ports.WishlistService, session ports.SessionManager, logger *slog.Logger) *Handler {
	return &Handler{service: service, session: session, logger: logger}
}

// ListIDs handles GET /wishlist/ids
func (h *Handler) ListIDs(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, idsResponse{
		IDs:           h.service.ExternalIDs(),
		Authenticated: h.session.Current().Authenticated,
	})
}

// IsLiked handles POST /wishlist/liked
func (h *Handler) IsLiked(w http.ResponseWriter, r *http.Request) {
	var ref wishlist.ProductRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	id, _ := wishlist.ResolveExternalID(ref)
	h.respond(w, http.StatusOK, likedResponse{ExternalID: id, Liked: h.service.IsProductLiked(ref)})
}

// AddID handles PUT /wishlist/ids/{id}
func (h *Handler) AddID(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AddExternalID(r.Context(), r.PathValue("id")); err != nil {
		h.handleLocalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveID handles DELETE /wishlist/ids/{id}
func (h *Handler) RemoveID(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveExternalID(r.Context(), r.PathValue("id")); err != nil {
		h.handleLocalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /wishlist/toggle
// The optimistic state is returned with 202 unless ?wait=true asks for the resolved result.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var ref wishlist.ProductRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	m := h.service.Toggle(r.Context(), ref)

	select {
	case <-m.Done():
		// Rejected before any remote call, or already finished.
		res, _ := m.Wait(r.Context())
		h.respond(w, statusForOutcome(res.Outcome), res)
		return
	default:
	}

	if r.URL.Query().Get("wait") != "true" {
		h.respond(w, http.StatusAccepted, toggleResponse{ExternalID: m.ExternalID(), Liked: m.Liked(), Pending: true})
		return
	}

	res, err := m.Wait(r.Context())
	if err != nil {
		// Client gave up; the remote call keeps running in the background.
		h.logger.InfoContext(r.Context(), "toggle wait abandoned", "id", m.ExternalID(), "error", err)
		h.respond(w, http.StatusAccepted, toggleResponse{ExternalID: m.ExternalID(), Liked: m.Liked(), Pending: true})
		return
	}
	h.respond(w, statusForOutcome(res.Outcome), res)
}

// Sync handles POST /wishlist/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context()); err != nil {
		var remoteErr *wishlist.RemoteError
		switch {
		case errors.Is(err, wishlist.ErrUnauthenticated):
			h.respondError(w, http.StatusUnauthorized, errors.New(wishlist.UserMessage(err)))
		case errors.As(err, &remoteErr):
			h.respondError(w, http.StatusBadGateway, errors.New(remoteErr.Message))
		default:
			h.logger.ErrorContext(r.Context(), "failed to sync wishlist", "error", err)
			h.respondError(w, http.StatusInternalServerError, errors.New(wishlist.UserMessage(err)))
		}
		return
	}
	h.respond(w, http.StatusOK, idsResponse{IDs: h.service.ExternalIDs(), Authenticated: true})
}

// GetSession handles GET /session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.session.Current())
}

// SignIn handles PUT /session
// Payload: {"token": "..."}
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err)
		return
	}

	identity, err := h.session.SignIn(r.Context(), req.Token)
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, err)
		return
	}
	h.respond(w, http.StatusOK, identity)
}

// SignOut handles DELETE /session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLocalError maps errors of local-only mutations. A persistence failure keeps the
// in-memory change and is not reported to the caller.
func (h *Handler) handleLocalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wishlist.ErrPersistence):
		h.logger.WarnContext(r.Context(), "liked ids not persisted", "error", err)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, wishlist.ErrUnauthenticated):
		h.respondError(w, http.StatusUnauthorized, errors.New(wishlist.UserMessage(err)))
	case errors.Is(err, wishlist.ErrUnresolvableIdentifier):
		h.respondError(w, http.StatusBadRequest, errors.New(wishlist.UserMessage(err)))
	default:
		h.logger.ErrorContext(r.Context(), "local wishlist update failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
