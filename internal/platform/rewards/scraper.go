// Package rewards scrapes the client-rendered Polymarket rewards pages to
// discover which markets are enrolled in the liquidity rewards program. The
// rewards listing is not exposed by the REST API, so it has to come from the
// rendered page.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/awyc/polyboard/internal/domain"
)

// Row is one market row extracted from a rendered rewards page.
type Row struct {
	Slug     string   `json:"slug"`
	Question string   `json:"question"`
	YesPrice *float64 `json:"yes_price"`
	NoPrice  *float64 `json:"no_price"`
	Spread   *float64 `json:"spread"`
	Image    string   `json:"image"`
	Link     string   `json:"link"`
}

// PageRenderer renders one rewards page in a browser and extracts its market
// rows. Page numbering starts at 1.
type PageRenderer interface {
	Render(ctx context.Context, page int) ([]Row, error)
}

// Scraper pages through the rewards listing until one of two independent
// termination signals fires:
//
//   - a short page (row count below the full-page threshold) marks the last
//     page, or
//   - the page signature matches one seen earlier in the same run, meaning
//     the site has looped back to already-served content instead of
//     terminating cleanly.
//
// Both signals are evaluated after every page, so whichever fires first ends
// the scrape.
type Scraper struct {
	renderer      PageRenderer
	fullThreshold int
	maxPages      int
	pageTimeout   time.Duration
	logger        *slog.Logger

	// Progress, when set, is called after each page with cumulative page and
	// distinct-slug counts.
	Progress func(pages, slugs int)
}

// NewScraper creates a Scraper. fullThreshold is the minimum row count for a
// page to be considered "full" (typically ~90% of the nominal page size);
// maxPages is a hard safety cap on the scrape.
func NewScraper(renderer PageRenderer, fullThreshold, maxPages int, pageTimeout time.Duration, logger *slog.Logger) *Scraper {
	if fullThreshold < 1 {
		fullThreshold = 90
	}
	if maxPages < 1 {
		maxPages = 50
	}
	if pageTimeout <= 0 {
		pageTimeout = 30 * time.Second
	}
	return &Scraper{
		renderer:      renderer,
		fullThreshold: fullThreshold,
		maxPages:      maxPages,
		pageTimeout:   pageTimeout,
		logger:        logger.With(slog.String("component", "rewards")),
	}
}

// Fetch scrapes rewards pages starting at 1 and returns the set of distinct
// market slugs found. A page render exceeding the timeout aborts the run with
// domain.ErrSourceTimeout so the caller can fall back to the previous set.
func (s *Scraper) Fetch(ctx context.Context) (domain.RewardsSet, error) {
	slugs := make(domain.RewardsSet)
	seenSigs := make(map[string]int)

	for page := 1; page <= s.maxPages; page++ {
		rows, err := s.renderPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("rewards: render page %d: %w", page, err)
		}

		if len(rows) > 0 {
			sig := pageSignature(rows)
			if prev, ok := seenSigs[sig]; ok {
				// The site served a page we already saw; it has wrapped
				// around instead of ending. Normal termination, not an error.
				s.logger.Info("rewards scrape loop detected",
					slog.Int("page", page),
					slog.Int("matches_page", prev),
					slog.Int("slugs", len(slugs)),
				)
				return slugs, nil
			}
			seenSigs[sig] = page
		}

		for _, r := range rows {
			if r.Slug != "" {
				slugs[r.Slug] = struct{}{}
			}
		}

		s.logger.Debug("scraped rewards page",
			slog.Int("page", page),
			slog.Int("rows", len(rows)),
			slog.Int("slugs", len(slugs)),
		)
		if s.Progress != nil {
			s.Progress(page, len(slugs))
		}

		if len(rows) < s.fullThreshold {
			s.logger.Info("rewards scrape complete",
				slog.Int("pages", page),
				slog.Int("slugs", len(slugs)),
			)
			return slugs, nil
		}
	}

	// Hitting the cap means neither termination signal fired; the collected
	// set is still usable.
	s.logger.Warn("rewards scrape hit page cap", slog.Int("max_pages", s.maxPages))
	return slugs, nil
}

// renderPage renders a single page under the per-page timeout.
func (s *Scraper) renderPage(ctx context.Context, page int) ([]Row, error) {
	pageCtx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	rows, err := s.renderer.Render(pageCtx, page)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceTimeout, err)
		}
		return nil, err
	}
	return rows, nil
}

// pageSignature identifies a page's content for loop detection. The first-row
// slug alone can false-positive on legitimately repeated leading content, so
// the last-row slug is folded in as well.
func pageSignature(rows []Row) string {
	return rows[0].Slug + "\x00" + rows[len(rows)-1].Slug
}
