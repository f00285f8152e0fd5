package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go-wishlist-sync/internal/core/domain/auth"
	"go-wishlist-sync/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Session holds the bearer token of the signed-in account and derives the identity from it.
// It implements ports.IdentityProvider and ports.TokenSource.
type Session struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	token    string
	identity auth.Identity

	subsMu sync.Mutex
	subs   map[uint64]func(auth.Identity)
	nextID uint64
}

var (
	_ ports.IdentityProvider = (*Session)(nil)
	_ ports.TokenSource      = (*Session)(nil)
	_ ports.SessionManager   = (*Session)(nil)
)

// NewSession returns a guest session. With an empty secret, token signatures are not
// verified: the agent only reads the claims of a token issued for the remote API.
func NewSession(secret string, logger *slog.Logger) *Session {
	return &Session{
		secret: []byte(secret),
		now:    time.Now,
		logger: logger,
		subs:   make(map[uint64]func(auth.Identity)),
	}
}

// SignIn adopts token as the current credential. Subscribers are notified when the
// identity changes.
func (s *Session) SignIn(ctx context.Context, token string) (auth.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return auth.Identity{}, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}

	claims, err := s.parse(token)
	if err != nil {
		s.logger.WarnContext(ctx, "sign in rejected", "error", err)
		return auth.Identity{}, err
	}

	next := auth.Identity{Subject: claims.Subject, Authenticated: true}
	if claims.ExpiresAt != nil {
		next.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := next.Validate(); err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	s.mu.Lock()
	changed := !s.identity.SameSession(next)
	s.token = token
	s.identity = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "signed in", "changed", changed)
	if changed {
		s.publish(next)
	}
	return next, nil
}

// SignOut drops the credential and notifies subscribers.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.identity.Authenticated
	s.token = ""
	s.identity = auth.Guest()
	s.mu.Unlock()

	if wasAuthenticated {
		s.logger.InfoContext(ctx, "signed out")
		s.publish(auth.Guest())
	}
}

// Current returns the identity. An expired credential reads as guest.
func (s *Session) Current() auth.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity.Expired(s.now()) {
		return auth.Guest()
	}
	return s.identity
}

// Token returns the bearer token while the identity is authenticated.
func (s *Session) Token(_ context.Context) (string, bool) {
	if !s.Current().Authenticated {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Session) Subscribe(fn func(auth.Identity)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// publish calls subscribers outside of every lock; they read Current.
func (s *Session) publish(identity auth.Identity) {
	s.subsMu.Lock()
	fns := make([]func(auth.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}

func (s *Session) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	if len(s.secret) > 0 {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return claims, nil
	}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
