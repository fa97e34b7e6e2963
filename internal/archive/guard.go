package archive

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Guard wraps a [Store] and makes writes non-fatal. A failed SaveRun is
// logged and swallowed so that a database outage never fails a combine whose
// transcript files are already on disk. Reads pass errors through.
//
// Guard implements [Store]. All methods are safe for concurrent use.
type Guard struct {
	store    Store
	degraded atomic.Bool
	dropped  atomic.Int64
}

// NewGuard creates a new [Guard] wrapping store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// SaveRun attempts to archive run. On failure the error is logged and
// swallowed; the guard is marked as degraded. On success the flag is cleared.
func (g *Guard) SaveRun(ctx context.Context, run Run) error {
	if err := g.store.SaveRun(ctx, run); err != nil {
		g.degraded.Store(true)
		g.dropped.Add(1)
		slog.Warn("archive guard: SaveRun failed, swallowing error",
			"session", run.Session,
			"run_id", run.ID,
			"error", err,
		)
		return nil
	}
	g.degraded.Store(false)
	return nil
}

// Runs delegates to the underlying store.
func (g *Guard) Runs(ctx context.Context, session string, limit int) ([]RunInfo, error) {
	return g.store.Runs(ctx, session, limit)
}

// Search delegates to the underlying store.
func (g *Guard) Search(ctx context.Context, query string, opts SearchOpts) ([]Hit, error) {
	return g.store.Search(ctx, query, opts)
}

// IsDegraded reports whether the most recent SaveRun failed.
func (g *Guard) IsDegraded() bool {
	return g.degraded.Load()
}

// Dropped returns the number of runs that could not be archived.
func (g *Guard) Dropped() int64 {
	return g.dropped.Load()
}

// Compile-time check that Guard satisfies Store.
var _ Store = (*Guard)(nil)
