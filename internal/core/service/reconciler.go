package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("internal/core/service")

// ReconcilerConfig holds the session context and policy of the reconciler.
type ReconcilerConfig struct {
	// Source and Country are sent with every added entry unless the product overrides them.
	Source  string
	Country string

	// StrictMode rolls the optimistic mutation back when the remote call fails.
	// Off by default: the optimistic state is kept until the next refresh.
	StrictMode bool

	// RemoteTimeout bounds each background remote call. Zero leaves it to the transport.
	RemoteTimeout time.Duration
}

// intent is the latest in-flight local mutation for one external id.
type intent struct {
	seq     uint64
	subject string
	liked   bool
}

// Reconciler sequences optimistic liked-set mutations with the remote wishlist.
type Reconciler struct {
	cache    ports.LikedCache
	remote   ports.WishlistRemote
	identity ports.IdentityProvider
	notifier ports.Notifier
	cfg      ReconcilerConfig
	logger   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	pending map[string]intent

	inflight sync.WaitGroup
}

var _ ports.WishlistService = (*Reconciler)(nil)

func NewReconciler(cache ports.LikedCache, remote ports.WishlistRemote, identity ports.IdentityProvider, notifier ports.Notifier, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		cache:    cache,
		remote:   remote,
		identity: identity,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		pending:  make(map[string]intent),
	}
}

// IsProductLiked reports whether any identifier of ref is in the liked set.
func (r *Reconciler) IsProductLiked(ref wishlist.ProductRef) bool {
	return r.cache.Contains(ref.CandidateIDs()...)
}

// ExternalIDs returns the liked ids.
func (r *Reconciler) ExternalIDs() []string {
	return r.cache.IDs()
}

// AddExternalID marks id as liked locally without calling the remote.
func (r *Reconciler) AddExternalID(ctx context.Context, id string) error {
	if !r.identity.Current().Authenticated {
		return wishlist.ErrUnauthenticated
	}
	return r.cache.Add(ctx, id)
}

// RemoveExternalID unmarks id locally without calling the remote.
func (r *Reconciler) RemoveExternalID(ctx context.Context, id string) error {
	if !r.identity.Current().Authenticated {
		return wishlist.ErrUnauthenticated
	}
	return r.cache.Remove(ctx, id)
}

// Toggle flips the liked state of ref. The local cache is updated before Toggle returns;
// the remote call runs in the background and its result is delivered through the
// returned Mutation and the notifier. Rejections (guest identity, no identifier,
// invalid product data) resolve immediately without touching the cache or the remote.
func (r *Reconciler) Toggle(ctx context.Context, ref wishlist.ProductRef) ports.Mutation {
	ctx, span := tracer.Start(ctx, "Reconciler.Toggle")
	defer span.End()

	current := r.identity.Current()
	if !current.Authenticated {
		return r.reject(ctx, "", false, wishlist.ErrUnauthenticated)
	}

	id, ok := wishlist.ResolveExternalID(ref)
	if !ok {
		return r.reject(ctx, "", false, wishlist.ErrUnresolvableIdentifier)
	}
	span.SetAttributes(attribute.String("wishlist.external_id", id))

	// Same matching rule as IsProductLiked: any identifier of ref counts.
	if liked := r.likedCandidates(ref); len(liked) > 0 {
		seq := r.begin(liked, current.Subject, false)
		err := r.cache.Update(ctx, func(ids []string) ([]string, bool) {
			return slices.DeleteFunc(ids, func(v string) bool { return slices.Contains(liked, v) }), true
		})
		if err != nil {
			if errors.Is(err, wishlist.ErrUnauthenticated) {
				r.finish(liked, seq)
				return r.reject(ctx, liked[0], false, err)
			}
			r.logger.WarnContext(ctx, "optimistic remove not persisted", "ids", liked, "error", err)
		}
		r.logger.InfoContext(ctx, "unliking product", "ids", liked, "seq", seq)
		span.SetAttributes(attribute.Bool("wishlist.liked", false))

		m := newMutation(liked[0], false)
		r.launch(ctx, m, func(ctx context.Context) wishlist.Result {
			return r.completeRemove(ctx, liked, current.Subject, seq)
		})
		return m
	}

	entry, err := wishlist.NewEntry(ref, r.cfg.Source, r.cfg.Country)
	if err != nil {
		span.RecordError(err)
		return r.reject(ctx, id, false, err)
	}

	seq := r.begin([]string{id}, current.Subject, true)
	if err := r.cache.Add(ctx, id); err != nil {
		if errors.Is(err, wishlist.ErrUnauthenticated) {
			r.finish([]string{id}, seq)
			return r.reject(ctx, id, false, err)
		}
		r.logger.WarnContext(ctx, "optimistic add not persisted", "id", id, "error", err)
	}
	r.logger.InfoContext(ctx, "liking product", "id", id, "seq", seq)
	span.SetAttributes(attribute.Bool("wishlist.liked", true))

	m := newMutation(id, true)
	r.launch(ctx, m, func(ctx context.Context) wishlist.Result {
		return r.completeAdd(ctx, entry, current.Subject, seq)
	})
	return m
}

// Refresh replaces the liked set with the remote collection. In-flight local
// mutations are kept on top of the remote list.
func (r *Reconciler) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Reconciler.Refresh")
	defer span.End()

	current := r.identity.Current()
	if !current.Authenticated {
		return wishlist.ErrUnauthenticated
	}

	list, err := r.remote.List(ctx)
	if err != nil {
		span.RecordError(err)
		r.logger.WarnContext(ctx, "failed to refresh wishlist", "error", err)
		return err
	}

	sessionChanged := false
	err = r.cache.Update(ctx, func([]string) ([]string, bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.identity.Current().SameSession(current) {
			sessionChanged = true
			return nil, false
		}
		ids := r.overlayLocked(list.IDs(), current.Subject, "")
		span.SetAttributes(attribute.Int("liked.count", len(ids)))
		return ids, true
	})
	if sessionChanged {
		return wishlist.ErrUnauthenticated
	}
	if err != nil && !errors.Is(err, wishlist.ErrPersistence) {
		return err
	}
	return nil
}

// Drain waits for in-flight remote calls to finish or for ctx to end.
func (r *Reconciler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) completeAdd(ctx context.Context, entry wishlist.Entry, subject string, seq uint64) wishlist.Result {
	id := entry.ID()
	defer r.finish([]string{id}, seq)

	list, err := r.remote.Add(ctx, entry)
	if err != nil {
		return r.failed(ctx, []string{id}, subject, seq, true, err)
	}

	res := wishlist.Result{ExternalID: id, Outcome: wishlist.OutcomeLiked, Message: list.Message}
	if list.Authoritative {
		res.Reconciled, res.Stale = r.applyAuthoritative(ctx, id, subject, seq, list.IDs())
	}
	res.Liked = r.cache.Contains(id)
	return res
}

// completeRemove deletes every matched id remotely, the resolved one first.
func (r *Reconciler) completeRemove(ctx context.Context, ids []string, subject string, seq uint64) wishlist.Result {
	defer r.finish(ids, seq)

	var message string
	for _, id := range ids {
		list, err := r.remote.Remove(ctx, id)
		if err != nil {
			return r.failed(ctx, ids, subject, seq, false, err)
		}
		if message == "" {
			message = list.Message
		}
	}
	// The cache already reflects the removal.
	return wishlist.Result{
		ExternalID: ids[0],
		Liked:      r.cache.Contains(ids...),
		Outcome:    wishlist.OutcomeUnliked,
		Message:    message,
	}
}

func (r *Reconciler) failed(ctx context.Context, ids []string, subject string, seq uint64, wantLiked bool, err error) wishlist.Result {
	trace.SpanFromContext(ctx).RecordError(err)
	r.logger.WarnContext(ctx, "remote wishlist mutation failed", "ids", ids, "liked", wantLiked, "error", err)

	res := wishlist.Result{
		ExternalID: ids[0],
		Outcome:    wishlist.OutcomeRemoteFailed,
		Message:    wishlist.UserMessage(err),
		Err:        err,
	}
	if r.cfg.StrictMode {
		res.RolledBack = r.rollback(ctx, ids, subject, seq, wantLiked)
	}
	res.Liked = r.cache.Contains(ids...)
	return res
}

// rollback reverts the optimistic mutation for the ids it is still the latest one for.
func (r *Reconciler) rollback(ctx context.Context, ids []string, subject string, seq uint64, wantLiked bool) bool {
	var reverted []string
	err := r.cache.Update(ctx, func(current []string) ([]string, bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, id := range ids {
			if !r.latestLocked(id, subject, seq) {
				continue
			}
			reverted = append(reverted, id)
			if wantLiked {
				current = slices.DeleteFunc(current, func(v string) bool { return v == id })
			} else if !slices.Contains(current, id) {
				current = append(current, id)
			}
		}
		return current, len(reverted) > 0
	})
	if err != nil && !errors.Is(err, wishlist.ErrPersistence) {
		r.logger.WarnContext(ctx, "rollback skipped", "ids", ids, "error", err)
		return false
	}
	if len(reverted) == 0 {
		return false
	}
	r.logger.InfoContext(ctx, "rolled back optimistic mutation", "ids", reverted, "seq", seq)
	return true
}

// applyAuthoritative replaces the cache with the server list when seq is still the
// latest mutation of id. Other ids with in-flight mutations keep their local intent.
// The decision is taken inside the cache update; the write itself runs with no lock held.
func (r *Reconciler) applyAuthoritative(ctx context.Context, id, subject string, seq uint64, ids []string) (applied, stale bool) {
	err := r.cache.Update(ctx, func([]string) ([]string, bool) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.latestLocked(id, subject, seq) {
			stale = true
			return nil, false
		}
		return r.overlayLocked(ids, subject, id), true
	})
	if stale {
		r.logger.InfoContext(ctx, "discarding stale wishlist response", "id", id, "seq", seq)
		return false, true
	}
	if err != nil && !errors.Is(err, wishlist.ErrPersistence) {
		r.logger.WarnContext(ctx, "authoritative list not applied", "id", id, "error", err)
		return false, false
	}
	return true, false
}

// likedCandidates returns the identifiers of ref that are in the liked set, in
// resolution priority order.
func (r *Reconciler) likedCandidates(ref wishlist.ProductRef) []string {
	var liked []string
	for _, candidate := range ref.CandidateIDs() {
		if r.cache.Contains(candidate) {
			liked = append(liked, candidate)
		}
	}
	return liked
}

// overlayLocked applies in-flight intents of subject on top of ids, except for skip.
func (r *Reconciler) overlayLocked(ids []string, subject, skip string) []string {
	out := slices.Clone(ids)
	for pid, in := range r.pending {
		if pid == skip || in.subject != subject {
			continue
		}
		present := slices.Contains(out, pid)
		switch {
		case in.liked && !present:
			out = append(out, pid)
		case !in.liked && present:
			out = slices.DeleteFunc(out, func(v string) bool { return v == pid })
		}
	}
	return out
}

func (r *Reconciler) latestLocked(id, subject string, seq uint64) bool {
	in, ok := r.pending[id]
	return ok && in.seq == seq && in.subject == subject && r.identity.Current().Subject == subject
}

func (r *Reconciler) begin(ids []string, subject string, liked bool) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	for _, id := range ids {
		r.pending[id] = intent{seq: r.seq, subject: subject, liked: liked}
	}
	return r.seq
}

func (r *Reconciler) finish(ids []string, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if in, ok := r.pending[id]; ok && in.seq == seq {
			delete(r.pending, id)
		}
	}
}

// launch runs fn in the background, detached from the caller's cancellation.
func (r *Reconciler) launch(ctx context.Context, m *mutation, fn func(context.Context) wishlist.Result) {
	bg := context.WithoutCancel(ctx)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		callCtx, cancel := bg, context.CancelFunc(func() {})
		if r.cfg.RemoteTimeout > 0 {
			callCtx, cancel = context.WithTimeout(bg, r.cfg.RemoteTimeout)
		}
		defer cancel()

		res := fn(callCtx)
		r.notify(bg, res)
		m.resolve(res)
	}()
}

func (r *Reconciler) reject(ctx context.Context, id string, liked bool, err error) *mutation {
	res := wishlist.Result{
		ExternalID: id,
		Liked:      liked,
		Outcome:    wishlist.OutcomeFor(err),
		Message:    wishlist.UserMessage(err),
		Err:        err,
	}
	if id != "" {
		res.Liked = r.cache.Contains(id)
	}
	r.logger.InfoContext(ctx, "wishlist toggle rejected", "id", id, "outcome", res.Outcome)

	m := newMutation(id, res.Liked)
	m.resolve(res)
	r.notify(ctx, res)
	return m
}

func (r *Reconciler) notify(ctx context.Context, res wishlist.Result) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, res)
	}
}

// mutation implements ports.Mutation.
type mutation struct {
	id     string
	liked  bool
	done   chan struct{}
	result wishlist.Result
}

func newMutation(id string, liked bool) *mutation {
	return &mutation{id: id, liked: liked, done: make(chan struct{})}
}

func (m *mutation) resolve(res wishlist.Result) {
	m.result = res
	close(m.done)
}

func (m *mutation) ExternalID() string    { return m.id }
func (m *mutation) Liked() bool           { return m.liked }
func (m *mutation) Done() <-chan struct{} { return m.done }

func (m *mutation) Wait(ctx context.Context) (wishlist.Result, error) {
	select {
	case <-m.done:
		return m.result, nil
	case <-ctx.Done():
		return wishlist.Result{}, ctx.Err()
	}
}
