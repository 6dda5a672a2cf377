package handler

import (
	"net/http"

	"github.com/awyc/polyboard/internal/domain"
	"github.com/awyc/polyboard/internal/store"
)

// StatusHandler serves the refresh status record.
type StatusHandler struct {
	snapshots *store.SnapshotStore
	status    *store.StatusStore
}

// NewStatusHandler creates a StatusHandler reading from the given stores.
func NewStatusHandler(snapshots *store.SnapshotStore, status *store.StatusStore) *StatusHandler {
	return &StatusHandler{snapshots: snapshots, status: status}
}

// statusResponse pairs the status record with the published snapshot's
// version and size.
type statusResponse struct {
	domain.Status
	SnapshotVersion uint64 `json:"snapshot_version"`
	TotalCount      int    `json:"total_count"`
}

// GetStatus responds with the current refresh state and progress counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Current()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:          h.status.Current(),
		SnapshotVersion: snap.Version,
		TotalCount:      len(snap.Markets),
	})
}
