package app

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/awyc/polyboard/internal/config"
	"github.com/awyc/polyboard/internal/merge"
	"github.com/awyc/polyboard/internal/metrics"
	"github.com/awyc/polyboard/internal/pipeline"
	"github.com/awyc/polyboard/internal/platform/gamma"
	"github.com/awyc/polyboard/internal/platform/rewards"
	"github.com/awyc/polyboard/internal/server"
	"github.com/awyc/polyboard/internal/server/handler"
	"github.com/awyc/polyboard/internal/server/ws"
	"github.com/awyc/polyboard/internal/store"
)

// Deps bundles the wired application dependencies.
type Deps struct {
	Snapshots *store.SnapshotStore
	Status    *store.StatusStore
	Refresher *pipeline.Refresher
	Hub       *ws.Hub
	Server    *server.Server
}

// Wire constructs the full dependency graph from the configuration. The
// returned cleanup function releases held resources (the headless browser).
func Wire(cfg *config.Config, logger *slog.Logger) (*Deps, func()) {
	snapshots := store.NewSnapshotStore()
	status := store.NewStatusStore()
	m := metrics.New(prometheus.DefaultRegisterer)

	gammaClient := gamma.NewClient(cfg.Gamma.Host, cfg.Gamma.RequestTimeout.Duration)
	fetcher := gamma.NewFetcher(
		gammaClient,
		cfg.Gamma.PageSize,
		cfg.Gamma.MaxAttempts,
		cfg.Gamma.RetryBackoff.Duration,
		logger,
	)
	fetcher.Progress = status.GammaProgress

	var (
		scraper  pipeline.RewardsFetcher
		renderer *rewards.BrowserRenderer
	)
	if cfg.Rewards.Enabled {
		renderer = rewards.NewBrowserRenderer(
			cfg.Rewards.Host,
			cfg.Rewards.SettleDelay.Duration,
			cfg.Rewards.Headless,
		)
		s := rewards.NewScraper(
			renderer,
			cfg.Rewards.FullPageThreshold,
			cfg.Rewards.MaxPages,
			cfg.Rewards.PageTimeout.Duration,
			logger,
		)
		s.Progress = status.RewardsProgress
		scraper = s
	} else {
		logger.Warn("rewards scraping disabled; markets will not carry rewards tags")
	}

	merger := merge.NewMerger(cfg.Refresh.ActivityFloor)
	refresher := pipeline.NewRefresher(
		fetcher, scraper, merger, snapshots, status, m,
		cfg.Refresh.Interval.Duration, logger,
	)

	hub := ws.NewHub(logger)
	refresher.OnPublish = hub.NotifySnapshot

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(),
		Markets: handler.NewMarketsHandler(snapshots, status, logger),
		Status:  handler.NewStatusHandler(snapshots, status),
		Refresh: handler.NewRefreshHandler(refresher, logger),
	}
	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, handlers, hub, logger)

	cleanup := func() {
		if renderer != nil {
			renderer.Close()
		}
	}

	return &Deps{
		Snapshots: snapshots,
		Status:    status,
		Refresher: refresher,
		Hub:       hub,
		Server:    srv,
	}, cleanup
}
