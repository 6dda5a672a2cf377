package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/awyc/polyboard/internal/domain"
	"github.com/awyc/polyboard/internal/store"
)

// MarketsHandler serves the published market snapshot. Reads never block on
// an in-flight refresh; during one, the previous snapshot is returned.
type MarketsHandler struct {
	snapshots *store.SnapshotStore
	status    *store.StatusStore
	logger    *slog.Logger
}

// NewMarketsHandler creates a MarketsHandler reading from the given stores.
func NewMarketsHandler(snapshots *store.SnapshotStore, status *store.StatusStore, logger *slog.Logger) *MarketsHandler {
	return &MarketsHandler{
		snapshots: snapshots,
		status:    status,
		logger:    logger,
	}
}

// marketsResponse is the dataset envelope consumed by the dashboard viewer.
type marketsResponse struct {
	Markets      []domain.Market `json:"markets"`
	TotalCount   int             `json:"total_count"`
	Version      uint64          `json:"version"`
	LastUpdated  *time.Time      `json:"last_updated,omitempty"`
	IsRefreshing bool            `json:"is_refreshing"`
	RewardsCount int             `json:"rewards_count"`
	Progress     domain.Status   `json:"progress"`
}

// ListMarkets returns the current snapshot with refresh metadata.
// GET /api/markets
func (h *MarketsHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	st := h.status.Current()

	rewardsCount := 0
	for i := range snap.Markets {
		if snap.Markets[i].HasRewards {
			rewardsCount++
		}
	}

	var lastUpdated *time.Time
	if snap.Version > 0 {
		t := snap.ProducedAt
		lastUpdated = &t
	}

	writeJSON(w, http.StatusOK, marketsResponse{
		Markets:      snap.Markets,
		TotalCount:   len(snap.Markets),
		Version:      snap.Version,
		LastUpdated:  lastUpdated,
		IsRefreshing: st.State == domain.RefreshFetching,
		RewardsCount: rewardsCount,
		Progress:     st,
	})
}
