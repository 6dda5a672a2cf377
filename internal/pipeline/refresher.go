// Package pipeline drives the fetch-merge-publish refresh cycle. One
// long-lived goroutine runs cycles on a timer and on manual triggers; the two
// upstream sources are fetched concurrently in independent failure domains.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/awyc/polyboard/internal/domain"
	"github.com/awyc/polyboard/internal/merge"
	"github.com/awyc/polyboard/internal/metrics"
	"github.com/awyc/polyboard/internal/store"
)

// GammaFetcher produces the full market list from the Gamma API.
type GammaFetcher interface {
	FetchAll(ctx context.Context) ([]domain.Market, error)
}

// RewardsFetcher produces the set of market slugs enrolled in the rewards
// program.
type RewardsFetcher interface {
	Fetch(ctx context.Context) (domain.RewardsSet, error)
}

// Refresher is the refresh scheduler. It owns the previous rewards set and
// event color map across cycles; both are touched only from the scheduler
// goroutine.
type Refresher struct {
	gamma     GammaFetcher
	rewards   RewardsFetcher // nil disables the rewards scrape
	merger    *merge.Merger
	snapshots *store.SnapshotStore
	status    *store.StatusStore
	metrics   *metrics.Set
	interval  time.Duration
	logger    *slog.Logger

	trigger    chan struct{}
	refreshing atomic.Bool

	prevRewards domain.RewardsSet
	prevColors  map[string]string

	// OnPublish, when set, is called with each newly published snapshot
	// (used to push updates to WebSocket clients).
	OnPublish func(*domain.Snapshot)
}

// NewRefresher creates a Refresher publishing into the given stores.
func NewRefresher(
	gamma GammaFetcher,
	rewards RewardsFetcher,
	merger *merge.Merger,
	snapshots *store.SnapshotStore,
	status *store.StatusStore,
	m *metrics.Set,
	interval time.Duration,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		gamma:       gamma,
		rewards:     rewards,
		merger:      merger,
		snapshots:   snapshots,
		status:      status,
		metrics:     m,
		interval:    interval,
		logger:      logger.With(slog.String("component", "refresher")),
		trigger:     make(chan struct{}, 1),
		prevRewards: make(domain.RewardsSet),
		prevColors:  make(map[string]string),
	}
}

// Trigger requests a refresh. It returns immediately: true if the request was
// accepted, false if a cycle is already running or pending (single-flight).
func (r *Refresher) Trigger() bool {
	if r.refreshing.Load() {
		return false
	}
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Refreshing reports whether a cycle is currently in flight.
func (r *Refresher) Refreshing() bool {
	return r.refreshing.Load()
}

// Run executes an immediate refresh, then loops on the interval timer and the
// manual trigger until ctx is cancelled. The timer restarts after each cycle
// completes, so a manual refresh pushes the next automatic one out by a full
// interval. Cycles are never cancelled mid-flight; single-flight scheduling
// prevents overlap instead.
func (r *Refresher) Run(ctx context.Context) error {
	r.RunOnce(ctx)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return ctx.Err()
		case <-timer.C:
			r.RunOnce(ctx)
			timer.Reset(r.interval)
		case <-r.trigger:
			r.RunOnce(ctx)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.interval)
		}
	}
}

// RunOnce executes a single refresh cycle. A failed Gamma fetch leaves the
// published snapshot untouched and records the error in the status; a failed
// rewards scrape falls back to the previous rewards set.
func (r *Refresher) RunOnce(ctx context.Context) error {
	if !r.refreshing.CompareAndSwap(false, true) {
		return domain.ErrRefreshInProgress
	}
	defer r.refreshing.Store(false)

	cycleID := uuid.NewString()
	r.status.BeginRefresh(cycleID)
	log := r.logger.With(slog.String("cycle_id", cycleID))
	log.Info("refresh cycle starting")
	start := time.Now()

	var (
		markets []domain.Market
		slugs   domain.RewardsSet
		gErr    error
		rErr    error
	)

	// Both sources run concurrently; errors are stashed rather than returned
	// so one source failing never cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		markets, gErr = r.gamma.FetchAll(ctx)
		return nil
	})
	g.Go(func() error {
		if r.rewards == nil {
			return nil
		}
		slugs, rErr = r.rewards.Fetch(ctx)
		return nil
	})
	_ = g.Wait()

	r.observeCycle(start)

	if gErr != nil {
		log.Error("gamma fetch failed, keeping previous snapshot",
			slog.String("error", gErr.Error()),
		)
		r.status.FinishError(gErr)
		r.metrics.RefreshCycles.WithLabelValues("gamma_error").Inc()
		return gErr
	}

	if rErr != nil {
		log.Warn("rewards scrape failed, reusing previous rewards set",
			slog.String("error", rErr.Error()),
			slog.Int("previous_slugs", len(r.prevRewards)),
		)
	} else if r.rewards != nil {
		r.prevRewards = slugs
	}

	merged, colors := r.merger.Merge(markets, r.prevRewards, r.prevColors)
	r.prevColors = colors

	snap := r.snapshots.Publish(merged)
	r.metrics.MarketsServed.Set(float64(len(merged)))
	r.metrics.SnapshotVersion.Set(float64(snap.Version))
	r.metrics.RefreshCycles.WithLabelValues("success").Inc()
	if r.OnPublish != nil {
		r.OnPublish(snap)
	}

	r.status.FinishSuccess(time.Now())
	log.Info("refresh cycle complete",
		slog.Uint64("version", snap.Version),
		slog.Int("markets", len(merged)),
		slog.Int("rewards_slugs", len(r.prevRewards)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// observeCycle records duration and per-source page/record totals for the
// cycle that just ended.
func (r *Refresher) observeCycle(start time.Time) {
	r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	st := r.status.Current()
	r.metrics.GammaPages.Add(float64(st.GammaPages))
	r.metrics.RewardsPages.Add(float64(st.RewardsPages))
	r.metrics.SkippedRecords.Add(float64(st.SkippedRows))
}
