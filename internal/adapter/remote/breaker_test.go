package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-wishlist-sync/internal/core/domain/wishlist"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestBreakerTransport_PassesResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}))
	defer server.Close()

	bt := NewBreakerTransport(http.DefaultTransport, testBreakerConfig("test-pass"), testLogger())
	client := NewClientWithHTTP(server.URL, &http.Client{Transport: bt}, nil, testLogger())

	// 5xx still reaches the caller with its body.
	_, err := client.List(context.Background())
	assert.ErrorIs(t, err, wishlist.ErrServer)
	assert.Equal(t, "db down", wishlist.UserMessage(err))
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_OpensOnFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	bt := NewBreakerTransport(http.DefaultTransport, testBreakerConfig("test-open"), testLogger())
	client := NewClientWithHTTP(server.URL, &http.Client{Transport: bt}, nil, testLogger())

	for i := 0; i < 3; i++ {
		_, err := client.List(context.Background())
		require.ErrorIs(t, err, wishlist.ErrServer)
	}
	assert.Equal(t, gobreaker.StateOpen, bt.State())

	// Open circuit: no request leaves, the failure is a network error.
	_, err := client.List(context.Background())
	assert.ErrorIs(t, err, wishlist.ErrNetwork)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), hits.Load())
}

func TestBreakerTransport_Recovers(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"wishlist":[]}}`))
	}))
	defer server.Close()

	cfg := testBreakerConfig("test-recover")
	cfg.Timeout = 50 * time.Millisecond
	bt := NewBreakerTransport(http.DefaultTransport, cfg, testLogger())
	client := NewClientWithHTTP(server.URL, &http.Client{Transport: bt}, nil, testLogger())

	for i := 0; i < 3; i++ {
		_, _ = client.List(context.Background())
	}
	require.Equal(t, gobreaker.StateOpen, bt.State())

	healthy.Store(true)
	time.Sleep(100 * time.Millisecond)

	_, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}
