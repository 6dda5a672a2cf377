package store

import (
	"sync"
	"time"

	"github.com/awyc/polyboard/internal/domain"
)

// StatusStore guards the refresh status record. It is written only by the
// refresh scheduler and read concurrently by the API layer.
type StatusStore struct {
	mu sync.RWMutex
	st domain.Status
}

// NewStatusStore creates a StatusStore in the idle state.
func NewStatusStore() *StatusStore {
	return &StatusStore{st: domain.Status{State: domain.RefreshIdle}}
}

// Current returns a copy of the status record.
func (s *StatusStore) Current() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// BeginRefresh marks the start of a cycle and resets the progress counters.
// The last-success timestamp and last error survive so the API keeps
// reporting them while the cycle runs.
func (s *StatusStore) BeginRefresh(cycleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.State = domain.RefreshFetching
	s.st.CycleID = cycleID
	s.st.GammaPages = 0
	s.st.RewardsPages = 0
	s.st.MarketsSeen = 0
	s.st.RewardsSeen = 0
	s.st.SkippedRows = 0
}

// GammaProgress records cumulative Gamma pagination progress.
func (s *StatusStore) GammaProgress(pages, markets, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.GammaPages = pages
	s.st.MarketsSeen = markets
	s.st.SkippedRows = skipped
}

// RewardsProgress records cumulative rewards scrape progress.
func (s *StatusStore) RewardsProgress(pages, slugs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.RewardsPages = pages
	s.st.RewardsSeen = slugs
}

// FinishSuccess marks the cycle as completed and stamps the success time.
func (s *StatusStore) FinishSuccess(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.State = domain.RefreshIdle
	s.st.LastError = ""
	t := at.UTC()
	s.st.LastSuccess = &t
}

// FinishError marks the cycle as failed with the given cause. The previous
// snapshot stays published; only the status surfaces the failure.
func (s *StatusStore) FinishError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.State = domain.RefreshError
	if err != nil {
		s.st.LastError = err.Error()
	}
}
