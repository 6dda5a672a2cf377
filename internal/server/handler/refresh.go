package handler

import (
	"log/slog"
	"net/http"
)

// RefreshTrigger requests a refresh cycle. Accepting is best-effort: a
// trigger while a cycle is running is a silent no-op per the single-flight
// policy.
type RefreshTrigger interface {
	Trigger() bool
}

// RefreshHandler serves the manual refresh endpoint.
type RefreshHandler struct {
	refresher RefreshTrigger
	logger    *slog.Logger
}

// NewRefreshHandler creates a RefreshHandler driving the given trigger.
func NewRefreshHandler(refresher RefreshTrigger, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, logger: logger}
}

// TriggerRefresh starts a refresh cycle and returns immediately without
// waiting for it to complete.
// GET /api/refresh
func (h *RefreshHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	started := h.refresher.Trigger()
	h.logger.InfoContext(r.Context(), "handler: refresh requested",
		slog.Bool("started", started),
	)

	status := "started"
	if !started {
		status = "already_refreshing"
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": status})
}
