package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-wishlist-sync/internal/core/domain/wishlist"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWriter struct{}

func (tw *testWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

type fakeStore struct {
	values map[string]string
	err    error
}

func (f *fakeStore) GetItem(_ context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetItem(_ context.Context, key, value string) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

type fakeRemote struct {
	err error
}

func (f *fakeRemote) List(context.Context) (wishlist.RemoteList, error) {
	return wishlist.RemoteList{Authoritative: true}, f.err
}

func (f *fakeRemote) Add(context.Context, wishlist.Entry) (wishlist.RemoteList, error) {
	return wishlist.RemoteList{}, f.err
}

func (f *fakeRemote) Remove(context.Context, string) (wishlist.RemoteList, error) {
	return wishlist.RemoteList{}, f.err
}

type recordingNotifier struct {
	got []wishlist.Result
}

func (r *recordingNotifier) Notify(_ context.Context, res wishlist.Result) {
	r.got = append(r.got, res)
}

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	store := NewInstrumentedStore(&fakeStore{values: map[string]string{}})

	hits := testutil.ToFloat64(storeOps.WithLabelValues("get", "hit"))
	misses := testutil.ToFloat64(storeOps.WithLabelValues("get", "miss"))
	sets := testutil.ToFloat64(storeOps.WithLabelValues("set", "ok"))

	_, found, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, store.SetItem(ctx, "k", "v"))
	val, found, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", val)

	assert.Equal(t, hits+1, testutil.ToFloat64(storeOps.WithLabelValues("get", "hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(storeOps.WithLabelValues("get", "miss")))
	assert.Equal(t, sets+1, testutil.ToFloat64(storeOps.WithLabelValues("set", "ok")))

	failing := NewInstrumentedStore(&fakeStore{err: errors.New("down")})
	errs := testutil.ToFloat64(storeOps.WithLabelValues("set", "error"))
	assert.Error(t, failing.SetItem(ctx, "k", "v"))
	assert.Equal(t, errs+1, testutil.ToFloat64(storeOps.WithLabelValues("set", "error")))
}

func TestInstrumentedRemote(t *testing.T) {
	ctx := context.Background()

	list, err := NewInstrumentedRemote(&fakeRemote{}).List(ctx)
	require.NoError(t, err)
	assert.True(t, list.Authoritative)

	_, err = NewInstrumentedRemote(&fakeRemote{err: wishlist.NewServerError(500, "")}).Add(ctx, wishlist.Entry{})
	assert.ErrorIs(t, err, wishlist.ErrServer)

	assert.Equal(t, "ok", remoteResult(nil))
	assert.Equal(t, "network", remoteResult(wishlist.NewNetworkError(errors.New("x"))))
	assert.Equal(t, "error", remoteResult(errors.New("x")))
}

func TestResultRecorder(t *testing.T) {
	next := &recordingNotifier{}
	rec := NewResultRecorder(slog.New(slog.NewTextHandler(&testWriter{}, nil)), next)

	liked := testutil.ToFloat64(toggleOutcomes.WithLabelValues(string(wishlist.OutcomeLiked)))
	stale := testutil.ToFloat64(toggleFlags.WithLabelValues("stale"))

	rec.Notify(context.Background(), wishlist.Result{ExternalID: "1", Outcome: wishlist.OutcomeLiked, Stale: true})
	rec.Notify(context.Background(), wishlist.Result{Outcome: wishlist.OutcomeRemoteFailed, Err: errors.New("x")})

	assert.Equal(t, liked+1, testutil.ToFloat64(toggleOutcomes.WithLabelValues(string(wishlist.OutcomeLiked))))
	assert.Equal(t, stale+1, testutil.ToFloat64(toggleFlags.WithLabelValues("stale")))
	assert.Len(t, next.got, 2)
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Middleware(mux)

	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestInitTracerProvider_Disabled(t *testing.T) {
	shutdown, err := InitTracerProvider(context.Background(), "test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
