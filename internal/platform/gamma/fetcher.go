package gamma

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/awyc/polyboard/internal/domain"
)

// EventLister fetches one page of events. It is satisfied by *Client and by
// test fakes.
type EventLister interface {
	GetEvents(ctx context.Context, limit, offset int) ([]APIEvent, error)
}

// Fetcher paginates through the Gamma events collection and flattens the
// nested market sub-records into domain markets.
type Fetcher struct {
	client       EventLister
	pageSize     int
	maxAttempts  int
	retryBackoff time.Duration
	logger       *slog.Logger

	// Progress, when set, is called after each page with cumulative page,
	// market, and skipped-record counts.
	Progress func(pages, markets, skipped int)
}

// NewFetcher creates a Fetcher. pageSize is the per-request batch size
// (upstream caps it at 100); maxAttempts bounds the retries per page.
func NewFetcher(client EventLister, pageSize, maxAttempts int, retryBackoff time.Duration, logger *slog.Logger) *Fetcher {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retryBackoff <= 0 {
		retryBackoff = 500 * time.Millisecond
	}
	return &Fetcher{
		client:       client,
		pageSize:     pageSize,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
		logger:       logger.With(slog.String("component", "gamma")),
	}
}

// FetchAll pages through the events collection until a short or empty batch
// signals the end. Malformed market sub-records are skipped and counted;
// a page that still fails after the retry budget fails the whole fetch, and
// nothing is published from a partial run.
func (f *Fetcher) FetchAll(ctx context.Context) ([]domain.Market, error) {
	var (
		markets []domain.Market
		offset  int
		pages   int
		skipped int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("gamma: fetch cancelled: %w", err)
		}

		events, err := f.getEventsWithRetry(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("gamma: fetch events at offset %d: %w", offset, err)
		}
		pages++

		for i := range events {
			ev := &events[i]
			for j := range ev.Markets {
				m, ok := ev.Markets[j].ToDomainMarket(ev)
				if !ok {
					skipped++
					continue
				}
				markets = append(markets, m)
			}
		}

		f.logger.Debug("fetched events page",
			slog.Int("offset", offset),
			slog.Int("events", len(events)),
			slog.Int("markets", len(markets)),
		)
		if f.Progress != nil {
			f.Progress(pages, len(markets), skipped)
		}

		// A short or empty batch is the last one. Checking both protects
		// against endless pagination if the upstream collection shrinks
		// mid-fetch.
		if len(events) < f.pageSize {
			break
		}
		offset += f.pageSize
	}

	f.logger.Info("gamma fetch complete",
		slog.Int("pages", pages),
		slog.Int("markets", len(markets)),
		slog.Int("skipped", skipped),
	)
	return markets, nil
}

// getEventsWithRetry fetches a single page, retrying transient failures with
// exponential backoff up to the attempt budget.
func (f *Fetcher) getEventsWithRetry(ctx context.Context, offset int) ([]APIEvent, error) {
	var lastErr error
	delay := f.retryBackoff

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		events, err := f.client.GetEvents(ctx, f.pageSize, offset)
		if err == nil {
			return events, nil
		}
		lastErr = err

		if attempt == f.maxAttempts {
			break
		}
		f.logger.Warn("events page fetch failed, retrying",
			slog.Int("offset", offset),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("after %d attempts: %w", f.maxAttempts, lastErr)
}
