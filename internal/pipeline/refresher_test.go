package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/awyc/polyboard/internal/domain"
	"github.com/awyc/polyboard/internal/merge"
	"github.com/awyc/polyboard/internal/metrics"
	"github.com/awyc/polyboard/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGamma struct {
	markets []domain.Market
	err     error
	// block, when non-nil, is closed by the test to release an in-flight
	// fetch.
	block   chan struct{}
	started chan struct{}
	calls   int
}

func (f *fakeGamma) FetchAll(ctx context.Context) ([]domain.Market, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	return f.markets, f.err
}

type fakeRewards struct {
	slugs domain.RewardsSet
	err   error
	calls int
}

func (f *fakeRewards) Fetch(ctx context.Context) (domain.RewardsSet, error) {
	f.calls++
	return f.slugs, f.err
}

func activeMarkets(slugs ...string) []domain.Market {
	markets := make([]domain.Market, len(slugs))
	for i, s := range slugs {
		markets[i] = domain.Market{Slug: s, EventID: "e-" + s, Volume: 100, Liquidity: 100}
	}
	return markets
}

func newTestRefresher(g GammaFetcher, r RewardsFetcher) (*Refresher, *store.SnapshotStore, *store.StatusStore) {
	snapshots := store.NewSnapshotStore()
	status := store.NewStatusStore()
	ref := NewRefresher(
		g, r,
		merge.NewMerger(10),
		snapshots, status,
		metrics.New(prometheus.NewRegistry()),
		time.Hour,
		testLogger(),
	)
	return ref, snapshots, status
}

func TestRunOncePublishes(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a", "b")}
	rewards := &fakeRewards{slugs: domain.RewardsSet{"b": {}}}
	ref, snapshots, status := newTestRefresher(gamma, rewards)

	var published *domain.Snapshot
	ref.OnPublish = func(s *domain.Snapshot) { published = s }

	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	snap := snapshots.Current()
	if snap.Version != 1 || len(snap.Markets) != 2 {
		t.Fatalf("snapshot version %d with %d markets, want 1/2", snap.Version, len(snap.Markets))
	}
	for _, m := range snap.Markets {
		if m.HasRewards != (m.Slug == "b") {
			t.Errorf("market %s has_rewards=%v", m.Slug, m.HasRewards)
		}
		if m.EventColor == "" {
			t.Errorf("market %s missing event color", m.Slug)
		}
	}
	if published == nil || published.Version != snap.Version {
		t.Error("OnPublish not invoked with the published snapshot")
	}

	st := status.Current()
	if st.State != domain.RefreshIdle || st.LastSuccess == nil || st.LastError != "" {
		t.Errorf("post-cycle status %+v", st)
	}
}

func TestRunOnceGammaFailureKeepsSnapshot(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a")}
	ref, snapshots, status := newTestRefresher(gamma, &fakeRewards{})

	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatalf("priming cycle: %v", err)
	}
	before := snapshots.Current()

	gamma.err = errors.New("upstream 500")
	err := ref.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected gamma failure to surface")
	}

	after := snapshots.Current()
	if after != before {
		t.Error("failed cycle replaced the published snapshot")
	}
	st := status.Current()
	if st.State != domain.RefreshError || st.LastError == "" {
		t.Errorf("status after failed cycle: %+v", st)
	}
	if st.LastSuccess == nil {
		t.Error("last success lost on failed cycle")
	}
}

func TestRunOnceRewardsFailureReusesPreviousSet(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a", "b")}
	rewards := &fakeRewards{slugs: domain.RewardsSet{"a": {}}}
	ref, snapshots, _ := newTestRefresher(gamma, rewards)

	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatalf("priming cycle: %v", err)
	}

	rewards.err = errors.New("render timeout")
	rewards.slugs = nil
	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle with rewards failure should still publish: %v", err)
	}

	snap := snapshots.Current()
	if snap.Version != 2 {
		t.Fatalf("snapshot version %d, want 2", snap.Version)
	}
	var tagged int
	for _, m := range snap.Markets {
		if m.HasRewards {
			tagged++
			if m.Slug != "a" {
				t.Errorf("unexpected rewards tag on %s", m.Slug)
			}
		}
	}
	if tagged != 1 {
		t.Errorf("got %d rewards-tagged markets, want 1 from previous set", tagged)
	}
}

func TestRunOnceWithoutRewardsFetcher(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a")}
	ref, snapshots, _ := newTestRefresher(gamma, nil)

	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	snap := snapshots.Current()
	if len(snap.Markets) != 1 || snap.Markets[0].HasRewards {
		t.Errorf("unexpected snapshot with rewards disabled: %+v", snap.Markets)
	}
}

func TestSingleFlight(t *testing.T) {
	gamma := &fakeGamma{
		markets: activeMarkets("a"),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	ref, _, _ := newTestRefresher(gamma, nil)

	done := make(chan error, 1)
	go func() { done <- ref.RunOnce(context.Background()) }()
	<-gamma.started

	if !ref.Refreshing() {
		t.Error("Refreshing() false during in-flight cycle")
	}
	if ref.Trigger() {
		t.Error("Trigger accepted while a cycle is in flight")
	}
	if err := ref.RunOnce(context.Background()); !errors.Is(err, domain.ErrRefreshInProgress) {
		t.Errorf("overlapping RunOnce returned %v, want ErrRefreshInProgress", err)
	}

	close(gamma.block)
	if err := <-done; err != nil {
		t.Fatalf("in-flight cycle failed: %v", err)
	}
	if ref.Refreshing() {
		t.Error("Refreshing() true after cycle completed")
	}
	if !ref.Trigger() {
		t.Error("Trigger rejected after cycle completed")
	}
}

func TestColorStabilityAcrossCycles(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a", "b")}
	ref, snapshots, _ := newTestRefresher(gamma, nil)

	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := map[string]string{}
	for _, m := range snapshots.Current().Markets {
		first[m.EventID] = m.EventColor
	}

	// Reversed input ordering must not reshuffle colors.
	gamma.markets = activeMarkets("b", "a")
	if err := ref.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, m := range snapshots.Current().Markets {
		if first[m.EventID] != m.EventColor {
			t.Errorf("event %s changed color across cycles: %s vs %s", m.EventID, first[m.EventID], m.EventColor)
		}
	}
}

func TestRunLoopHonorsTriggerAndCancel(t *testing.T) {
	gamma := &fakeGamma{markets: activeMarkets("a")}
	ref, snapshots, _ := newTestRefresher(gamma, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ref.Run(ctx) }()

	// Startup cycle.
	waitForVersion(t, snapshots, 1)

	if !ref.Trigger() {
		t.Error("Trigger rejected while idle")
	}
	waitForVersion(t, snapshots, 2)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func waitForVersion(t *testing.T, s *store.SnapshotStore, v uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Current().Version >= v {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot never reached version %d (at %d)", v, s.Current().Version)
}
