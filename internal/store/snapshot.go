// Package store holds the in-memory shared state of the backend: the
// published market snapshot and the refresh status record. Both are rebuilt
// from upstream on restart; nothing is persisted.
package store

import (
	"sync/atomic"
	"time"

	"github.com/awyc/polyboard/internal/domain"
)

// SnapshotStore holds the last successfully merged dataset. Publication is an
// atomic pointer swap, so readers never block on an in-progress refresh and
// never observe a partially-built snapshot.
type SnapshotStore struct {
	snap    atomic.Pointer[domain.Snapshot]
	version atomic.Uint64
}

// NewSnapshotStore creates a store primed with an empty version-0 snapshot so
// the read path is valid before the first refresh completes.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{}
	s.snap.Store(&domain.Snapshot{Markets: []domain.Market{}})
	return s
}

// Publish replaces the current snapshot with one built from markets,
// incrementing the version. The markets slice is owned by the store after
// the call; callers must not mutate it.
func (s *SnapshotStore) Publish(markets []domain.Market) *domain.Snapshot {
	snap := &domain.Snapshot{
		Markets:    markets,
		ProducedAt: time.Now().UTC(),
		Version:    s.version.Add(1),
	}
	s.snap.Store(snap)
	return snap
}

// Current returns the latest published snapshot. It never blocks.
func (s *SnapshotStore) Current() *domain.Snapshot {
	return s.snap.Load()
}
