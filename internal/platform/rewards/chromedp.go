package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// extractRowsJS pulls market rows out of the rendered rewards page. Market
// links look like /event/<event-slug>/<market-slug>; prices and the max
// spread are only present as display text, so they are matched out of the
// row's text content.
const extractRowsJS = `(() => {
	const rows = [];
	const seen = new Set();
	document.querySelectorAll('a[href*="/event/"]').forEach(link => {
		const href = link.href || '';
		const match = href.match(/\/event\/([^?]+)/);
		if (!match) return;
		const parts = match[1].split('/');
		const slug = parts[parts.length - 1];
		if (!slug || seen.has(slug)) return;
		seen.add(slug);

		let container = link;
		for (let i = 0; i < 10; i++) {
			const parent = container.parentElement;
			if (!parent) break;
			container = parent;
			const text = container.textContent || '';
			if (text.includes('¢') && (text.includes('Yes') || text.includes('No'))) break;
		}
		const text = container.textContent || '';

		const yesMatch = text.match(/Yes\s*([0-9]+\.?[0-9]*)¢/i);
		const noMatch = text.match(/No\s*([0-9]+\.?[0-9]*)¢/i);
		const spreadMatch = text.match(/±([0-9]+\.?[0-9]*)¢/);
		const img = link.querySelector('img') || container.querySelector('img');

		rows.push({
			slug: slug,
			question: (link.textContent || '').trim(),
			yes_price: yesMatch ? parseFloat(yesMatch[1]) : null,
			no_price: noMatch ? parseFloat(noMatch[1]) : null,
			spread: spreadMatch ? parseFloat(spreadMatch[1]) : null,
			image: img ? img.src : '',
			link: href,
		});
	});
	return rows;
})()`

// BrowserRenderer renders rewards pages in a headless Chrome instance via
// chromedp. A single browser is shared across pages within a scrape run; each
// Render call navigates a tab and evaluates the row-extraction script.
type BrowserRenderer struct {
	baseURL     string
	settleDelay time.Duration

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

// NewBrowserRenderer launches a headless Chrome allocator rooted at baseURL
// (e.g. "https://polymarket.com"). settleDelay is how long to wait after
// navigation for the client-side script to populate the listing. Call Close
// when done.
func NewBrowserRenderer(baseURL string, settleDelay time.Duration, headless bool) *BrowserRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	if settleDelay <= 0 {
		settleDelay = 1500 * time.Millisecond
	}
	return &BrowserRenderer{
		baseURL:     baseURL,
		settleDelay: settleDelay,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}
}

// Render navigates to the numbered rewards page, waits for the client script
// to settle, and extracts the market rows from the DOM.
func (b *BrowserRenderer) Render(ctx context.Context, page int) ([]Row, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	// Honour the caller's per-page deadline on the tab.
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		tabCtx, dcancel = context.WithDeadline(tabCtx, deadline)
		defer dcancel()
	}

	url := fmt.Sprintf("%s/rewards?page=%d", b.baseURL, page)

	var rows []Row
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settleDelay),
		chromedp.Evaluate(extractRowsJS, &rows),
	)
	if err != nil {
		// Surface the caller's deadline rather than chromedp's wrapper so the
		// scraper can classify the failure as a timeout.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	return rows, nil
}

// Close tears down the shared browser and its allocator.
func (b *BrowserRenderer) Close() {
	b.browserStop()
	b.allocCancel()
}
