// Package domain defines the core entities shared across the polyboard
// backend: markets, snapshots, and refresh status.
package domain

import "time"

// Market is a single yes/no prediction market as served to the dashboard.
// Slug is the stable unique key used to join the Gamma API data with the
// rewards-page scrape.
type Market struct {
	ID         string   `json:"id"`
	Slug       string   `json:"slug"`
	Question   string   `json:"question"`
	EventID    string   `json:"event_id"`
	EventTitle string   `json:"event_title"`
	EventSlug  string   `json:"event_slug"`
	Image      string   `json:"image,omitempty"`
	YesPrice   int      `json:"yes_price"` // cents, 0-100
	NoPrice    int      `json:"no_price"`  // cents, 0-100
	Spread     *float64 `json:"spread,omitempty"`
	Volume     float64  `json:"volume"`
	Volume24h  float64  `json:"volume_24hr"`
	Liquidity  float64  `json:"liquidity"`
	EndDate    string   `json:"end_date,omitempty"`
	URL        string   `json:"url,omitempty"`
	HasRewards bool     `json:"has_rewards"`
	EventColor string   `json:"event_color"`
}

// Snapshot is the immutable, versioned dataset published after a successful
// refresh cycle. Once published it is never mutated; readers always see a
// complete snapshot.
type Snapshot struct {
	Markets    []Market  `json:"markets"`
	ProducedAt time.Time `json:"produced_at"`
	Version    uint64    `json:"version"`
}

// RewardsSet is the set of market slugs currently enrolled in the rewards
// program, keyed by slug.
type RewardsSet map[string]struct{}

// Contains reports whether slug is in the set.
func (s RewardsSet) Contains(slug string) bool {
	_, ok := s[slug]
	return ok
}
