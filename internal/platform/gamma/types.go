package gamma

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/awyc/polyboard/internal/domain"
)

// APIEvent represents an event as returned by the Gamma API. An event groups
// one or more related markets.
type APIEvent struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Image   string      `json:"image"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents a market nested inside a Gamma API event. Outcomes and
// OutcomePrices are JSON-encoded parallel string lists, e.g.
// "[\"Yes\",\"No\"]" and "[\"0.75\",\"0.25\"]".
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Image         string   `json:"image"`
	Outcomes      string   `json:"outcomes"`
	OutcomePrices string   `json:"outcomePrices"`
	Spread        *float64 `json:"spread"`
	VolumeNum     float64  `json:"volumeNum"`
	Volume24h     float64  `json:"volume24hr"`
	LiquidityNum  float64  `json:"liquidityNum"`
	EndDate       string   `json:"endDate"`
}

// outcomeCents decodes the parallel outcome name/price payloads into a
// name -> integer-cents mapping. Prices arrive as probability strings in
// [0.0, 1.0]; they are rounded to cents and clamped into [0, 100].
func (m *APIMarket) outcomeCents() (map[string]int, error) {
	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		return nil, fmt.Errorf("decode outcomes: %w", err)
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return nil, fmt.Errorf("decode outcome prices: %w", err)
	}
	if len(prices) < len(names) {
		return nil, fmt.Errorf("outcome/price length mismatch: %d names, %d prices", len(names), len(prices))
	}

	cents := make(map[string]int, len(names))
	for i, name := range names {
		p, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", prices[i], err)
		}
		cents[name] = clampCents(int(math.Round(p * 100)))
	}
	return cents, nil
}

func clampCents(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// ToDomainMarket converts an API market sub-record into a domain.Market,
// resolving prices and attaching event context. It returns false when the
// record is malformed (missing or unparseable Yes/No prices) so the caller
// can skip it without failing the page.
func (m *APIMarket) ToDomainMarket(ev *APIEvent) (domain.Market, bool) {
	cents, err := m.outcomeCents()
	if err != nil {
		return domain.Market{}, false
	}
	yes, okYes := cents["Yes"]
	no, okNo := cents["No"]
	if !okYes || !okNo {
		return domain.Market{}, false
	}

	image := m.Image
	if image == "" {
		image = ev.Image
	}

	return domain.Market{
		ID:         m.ID,
		Slug:       m.Slug,
		Question:   m.Question,
		EventID:    ev.ID,
		EventTitle: ev.Title,
		EventSlug:  ev.Slug,
		Image:      image,
		YesPrice:   yes,
		NoPrice:    no,
		Spread:     m.Spread,
		Volume:     m.VolumeNum,
		Volume24h:  m.Volume24h,
		Liquidity:  m.LiquidityNum,
		EndDate:    m.EndDate,
		URL:        fmt.Sprintf("https://polymarket.com/event/%s/%s", ev.Slug, m.Slug),
	}, true
}
