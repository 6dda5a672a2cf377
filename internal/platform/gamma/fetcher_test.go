package gamma

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLister serves a fixed event list in pages and records requested
// offsets.
type fakeLister struct {
	events  []APIEvent
	offsets []int
	// failures maps offset -> number of times to fail before succeeding.
	failures map[int]int
}

func (f *fakeLister) GetEvents(ctx context.Context, limit, offset int) ([]APIEvent, error) {
	f.offsets = append(f.offsets, offset)
	if n := f.failures[offset]; n > 0 {
		f.failures[offset] = n - 1
		return nil, errors.New("upstream 500")
	}
	if offset >= len(f.events) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.events) {
		end = len(f.events)
	}
	return f.events[offset:end], nil
}

func makeEvents(n int) []APIEvent {
	events := make([]APIEvent, n)
	for i := range events {
		events[i] = APIEvent{
			ID:    fmt.Sprintf("e%d", i),
			Title: fmt.Sprintf("Event %d", i),
			Slug:  fmt.Sprintf("event-%d", i),
			Markets: []APIMarket{{
				ID:            fmt.Sprintf("m%d", i),
				Question:      "?",
				Slug:          fmt.Sprintf("market-%d", i),
				Outcomes:      `["Yes","No"]`,
				OutcomePrices: `["0.5","0.5"]`,
			}},
		}
	}
	return events
}

func TestFetchAllPaginationTermination(t *testing.T) {
	// 2 full pages of 3 plus a final partial page of 2: exactly 3 requests.
	lister := &fakeLister{events: makeEvents(8)}
	f := NewFetcher(lister, 3, 1, time.Millisecond, testLogger())

	markets, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(markets) != 8 {
		t.Errorf("got %d markets, want 8", len(markets))
	}
	wantOffsets := []int{0, 3, 6}
	if len(lister.offsets) != len(wantOffsets) {
		t.Fatalf("got offsets %v, want %v", lister.offsets, wantOffsets)
	}
	for i, o := range wantOffsets {
		if lister.offsets[i] != o {
			t.Errorf("request %d at offset %d, want %d", i, lister.offsets[i], o)
		}
	}

	// No duplicates or gaps.
	seen := make(map[string]bool, len(markets))
	for _, m := range markets {
		if seen[m.Slug] {
			t.Errorf("duplicate market %s", m.Slug)
		}
		seen[m.Slug] = true
	}
}

func TestFetchAllEmptyFirstPage(t *testing.T) {
	lister := &fakeLister{}
	f := NewFetcher(lister, 3, 1, time.Millisecond, testLogger())

	markets, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(markets) != 0 {
		t.Errorf("got %d markets, want 0", len(markets))
	}
	if len(lister.offsets) != 1 {
		t.Errorf("got %d requests, want 1", len(lister.offsets))
	}
}

func TestFetchAllExactPageBoundary(t *testing.T) {
	// 6 events with page size 3: two full pages, then an empty third request
	// terminates.
	lister := &fakeLister{events: makeEvents(6)}
	f := NewFetcher(lister, 3, 1, time.Millisecond, testLogger())

	markets, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(markets) != 6 {
		t.Errorf("got %d markets, want 6", len(markets))
	}
	if len(lister.offsets) != 3 {
		t.Errorf("got %d requests, want 3 (last one empty)", len(lister.offsets))
	}
}

func TestFetchAllRetriesTransientFailure(t *testing.T) {
	lister := &fakeLister{
		events:   makeEvents(2),
		failures: map[int]int{0: 2},
	}
	f := NewFetcher(lister, 3, 3, time.Millisecond, testLogger())

	markets, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll should succeed after retries: %v", err)
	}
	if len(markets) != 2 {
		t.Errorf("got %d markets, want 2", len(markets))
	}
}

func TestFetchAllFailsAfterRetryBudget(t *testing.T) {
	lister := &fakeLister{
		events:   makeEvents(2),
		failures: map[int]int{0: 3},
	}
	f := NewFetcher(lister, 3, 3, time.Millisecond, testLogger())

	if _, err := f.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error after exhausting retry budget")
	}
}

func TestFetchAllSkipsMalformedMarkets(t *testing.T) {
	events := makeEvents(2)
	events[0].Markets = append(events[0].Markets, APIMarket{
		ID:            "bad",
		Slug:          "bad-market",
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `garbage`,
	})
	lister := &fakeLister{events: events}
	f := NewFetcher(lister, 3, 1, time.Millisecond, testLogger())

	var gotSkipped int
	f.Progress = func(pages, markets, skipped int) { gotSkipped = skipped }

	markets, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(markets) != 2 {
		t.Errorf("got %d markets, want 2 (malformed one skipped)", len(markets))
	}
	if gotSkipped != 1 {
		t.Errorf("got %d skipped, want 1", gotSkipped)
	}
}
