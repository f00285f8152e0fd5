package service

import (
	"context"
	"log/slog"
	"sync"

	"go-wishlist-sync/internal/core/domain/auth"
	"go-wishlist-sync/internal/core/domain/wishlist"

	"github.com/stretchr/testify/mock"
)

// Mocks

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) List(ctx context.Context) (wishlist.RemoteList, error) {
	args := m.Called(ctx)
	return args.Get(0).(wishlist.RemoteList), args.Error(1)
}

func (m *MockRemote) Add(ctx context.Context, entry wishlist.Entry) (wishlist.RemoteList, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(wishlist.RemoteList), args.Error(1)
}

func (m *MockRemote) Remove(ctx context.Context, externalID string) (wishlist.RemoteList, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(wishlist.RemoteList), args.Error(1)
}

type MockLikedCache struct {
	mock.Mock
}

func (m *MockLikedCache) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLikedCache) Contains(candidates ...string) bool {
	args := m.Called(candidates)
	return args.Bool(0)
}

func (m *MockLikedCache) Add(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLikedCache) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLikedCache) ReplaceAll(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockLikedCache) Update(ctx context.Context, fn func(ids []string) ([]string, bool)) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockLikedCache) IDs() []string {
	args := m.Called()
	if ids := args.Get(0); ids != nil {
		return ids.([]string)
	}
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, result wishlist.Result) {
	m.Called(ctx, result)
}

// stubIdentity is a settable identity provider.
type stubIdentity struct {
	mu      sync.Mutex
	current auth.Identity
	subs    map[int]func(auth.Identity)
	next    int
}

func newStubIdentity(current auth.Identity) *stubIdentity {
	return &stubIdentity{current: current, subs: make(map[int]func(auth.Identity))}
}

func (s *stubIdentity) Current() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *stubIdentity) Subscribe(fn func(auth.Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *stubIdentity) set(identity auth.Identity) {
	s.mu.Lock()
	s.current = identity
	subs := make([]func(auth.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}

// emit delivers identity to subscribers without changing Current, like an event
// that arrives after a newer change has landed.
func (s *stubIdentity) emit(identity auth.Identity) {
	s.mu.Lock()
	subs := make([]func(auth.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}

func signedIn(subject string) auth.Identity {
	return auth.Identity{Subject: subject, Authenticated: true}
}

// Helper to silence logs
type testWriter struct{}

func (tw *testWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&testWriter{}, nil))
}
