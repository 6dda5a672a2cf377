package store

import (
	"sync"
	"testing"

	"github.com/awyc/polyboard/internal/domain"
)

func TestSnapshotStoreInitialState(t *testing.T) {
	s := NewSnapshotStore()

	snap := s.Current()
	if snap == nil {
		t.Fatal("Current returned nil before first publish")
	}
	if snap.Version != 0 {
		t.Errorf("initial version %d, want 0", snap.Version)
	}
	if len(snap.Markets) != 0 {
		t.Errorf("initial snapshot has %d markets, want 0", len(snap.Markets))
	}
}

func TestSnapshotStorePublishIncrementsVersion(t *testing.T) {
	s := NewSnapshotStore()

	first := s.Publish([]domain.Market{{Slug: "a"}})
	if first.Version != 1 {
		t.Errorf("first publish version %d, want 1", first.Version)
	}
	second := s.Publish([]domain.Market{{Slug: "a"}, {Slug: "b"}})
	if second.Version != 2 {
		t.Errorf("second publish version %d, want 2", second.Version)
	}

	cur := s.Current()
	if cur.Version != 2 || len(cur.Markets) != 2 {
		t.Errorf("Current returned version %d with %d markets, want 2/2", cur.Version, len(cur.Markets))
	}
	if cur.ProducedAt.IsZero() {
		t.Error("published snapshot missing ProducedAt")
	}
}

func TestSnapshotStoreConcurrentReaders(t *testing.T) {
	s := NewSnapshotStore()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Current()
				// A snapshot is immutable once published: its market count
				// must match its version's publish.
				if int(snap.Version) != len(snap.Markets) {
					t.Errorf("torn snapshot: version %d with %d markets", snap.Version, len(snap.Markets))
					return
				}
			}
		}()
	}

	markets := make([]domain.Market, 0, 100)
	for i := 0; i < 100; i++ {
		markets = append(markets, domain.Market{Slug: "m"})
		s.Publish(append([]domain.Market(nil), markets...))
	}
	close(stop)
	wg.Wait()
}
