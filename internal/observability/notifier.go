package observability

import (
	"context"
	"log/slog"

	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"
)

// ResultRecorder counts toggle results and logs the ones a user would be notified about.
// It forwards to next when set.
type ResultRecorder struct {
	logger *slog.Logger
	next   ports.Notifier
}

func NewResultRecorder(logger *slog.Logger, next ports.Notifier) *ResultRecorder {
	return &ResultRecorder{logger: logger, next: next}
}

var _ ports.Notifier = (*ResultRecorder)(nil)

func (n *ResultRecorder) Notify(ctx context.Context, res wishlist.Result) {
	toggleOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	if res.Reconciled {
		toggleFlags.WithLabelValues("reconciled").Inc()
	}
	if res.Stale {
		toggleFlags.WithLabelValues("stale").Inc()
	}
	if res.RolledBack {
		toggleFlags.WithLabelValues("rolled_back").Inc()
	}

	if !res.OK() {
		n.logger.WarnContext(ctx, "wishlist toggle failed",
			"id", res.ExternalID,
			"outcome", res.Outcome,
			"message", res.Message,
			"error", res.Err,
		)
	} else {
		n.logger.InfoContext(ctx, "wishlist toggle completed", "id", res.ExternalID, "outcome", res.Outcome)
	}

	if n.next != nil {
		n.next.Notify(ctx, res)
	}
}
