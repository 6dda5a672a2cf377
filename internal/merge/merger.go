// Package merge joins the Gamma market list with the rewards slug set,
// filters low-activity markets, and assigns stable per-event color tags.
package merge

import (
	"hash/fnv"

	"github.com/awyc/polyboard/internal/domain"
)

// palette is the fixed set of event color tags. Colors are assigned by
// hashing the event ID, so a given event keeps its color across refreshes
// and regardless of market ordering.
var palette = []string{
	"#6366f1", // indigo
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#22c55e", // green
	"#ef4444", // red
	"#3b82f6", // blue
	"#eab308", // yellow
	"#06b6d4", // cyan
	"#f97316", // orange
	"#a855f7", // purple
}

// Merger combines the two upstream datasets into the served market list.
type Merger struct {
	activityFloor float64
}

// NewMerger creates a Merger. activityFloor is the dollar threshold below
// which a market is dropped when both its volume and liquidity fall under it.
func NewMerger(activityFloor float64) *Merger {
	return &Merger{activityFloor: activityFloor}
}

// Merge tags each market with has_rewards, drops markets whose volume and
// liquidity are both below the activity floor, and assigns event colors.
// prevColors carries the color assignments from the previous cycle so events
// keep their colors; the returned map is the assignment for this cycle.
// Input order is preserved — sorting is a presentation concern.
func (m *Merger) Merge(markets []domain.Market, rewards domain.RewardsSet, prevColors map[string]string) ([]domain.Market, map[string]string) {
	merged := make([]domain.Market, 0, len(markets))
	colors := make(map[string]string, len(prevColors))

	for _, mk := range markets {
		if mk.Volume < m.activityFloor && mk.Liquidity < m.activityFloor {
			continue
		}

		mk.HasRewards = rewards.Contains(mk.Slug)

		color, ok := colors[mk.EventID]
		if !ok {
			if color, ok = prevColors[mk.EventID]; !ok {
				color = colorFor(mk.EventID)
			}
			colors[mk.EventID] = color
		}
		mk.EventColor = color

		merged = append(merged, mk)
	}

	return merged, colors
}

// colorFor derives a deterministic palette color from an event ID.
func colorFor(eventID string) string {
	h := fnv.New32a()
	h.Write([]byte(eventID))
	return palette[h.Sum32()%uint32(len(palette))]
}
