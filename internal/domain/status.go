package domain

import "time"

// RefreshState is the lifecycle state of the refresh scheduler.
type RefreshState string

const (
	RefreshIdle     RefreshState = "idle"
	RefreshFetching RefreshState = "fetching"
	RefreshError    RefreshState = "error"
)

// Status describes the current refresh cycle. It is mutated only by the
// refresh scheduler and read concurrently by the API layer.
type Status struct {
	State        RefreshState `json:"state"`
	CycleID      string       `json:"cycle_id,omitempty"`
	GammaPages   int          `json:"gamma_pages"`
	RewardsPages int          `json:"rewards_pages"`
	MarketsSeen  int          `json:"markets_seen"`
	RewardsSeen  int          `json:"rewards_seen"`
	SkippedRows  int          `json:"skipped_rows"`
	LastSuccess  *time.Time   `json:"last_success,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
}
