package gamma

import "testing"

func apiMarket(outcomes, prices string) APIMarket {
	return APIMarket{
		ID:            "m1",
		Question:      "Will it happen?",
		Slug:          "will-it-happen",
		Outcomes:      outcomes,
		OutcomePrices: prices,
	}
}

func TestToDomainMarketPriceConversion(t *testing.T) {
	ev := &APIEvent{ID: "e1", Title: "Event", Slug: "event"}

	tests := []struct {
		name    string
		prices  string
		wantYes int
		wantNo  int
	}{
		{"rounding", `["0.753","0.247"]`, 75, 25},
		{"round half up", `["0.505","0.495"]`, 51, 50},
		{"clamp high", `["1.7","0.1"]`, 100, 10},
		{"clamp low", `["-0.2","0.9"]`, 0, 90},
		{"exact bounds", `["0","1"]`, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := apiMarket(`["Yes","No"]`, tt.prices)
			dm, ok := m.ToDomainMarket(ev)
			if !ok {
				t.Fatalf("expected valid market for prices %s", tt.prices)
			}
			if dm.YesPrice != tt.wantYes || dm.NoPrice != tt.wantNo {
				t.Errorf("got yes=%d no=%d, want yes=%d no=%d", dm.YesPrice, dm.NoPrice, tt.wantYes, tt.wantNo)
			}
		})
	}
}

func TestToDomainMarketMalformed(t *testing.T) {
	ev := &APIEvent{ID: "e1", Title: "Event", Slug: "event"}

	tests := []struct {
		name     string
		outcomes string
		prices   string
	}{
		{"unparseable prices payload", `["Yes","No"]`, `not json`},
		{"unparseable outcomes payload", `not json`, `["0.5","0.5"]`},
		{"non-numeric price", `["Yes","No"]`, `["abc","0.5"]`},
		{"missing no outcome", `["Up","Down"]`, `["0.5","0.5"]`},
		{"fewer prices than outcomes", `["Yes","No"]`, `["0.5"]`},
		{"empty payloads", `[]`, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := apiMarket(tt.outcomes, tt.prices)
			if _, ok := m.ToDomainMarket(ev); ok {
				t.Errorf("expected malformed market to be rejected")
			}
		})
	}
}

func TestToDomainMarketEventContext(t *testing.T) {
	ev := &APIEvent{ID: "e9", Title: "Big Event", Slug: "big-event", Image: "event.png"}
	m := apiMarket(`["Yes","No"]`, `["0.4","0.6"]`)

	dm, ok := m.ToDomainMarket(ev)
	if !ok {
		t.Fatal("expected valid market")
	}
	if dm.EventID != "e9" || dm.EventTitle != "Big Event" || dm.EventSlug != "big-event" {
		t.Errorf("event context not attached: %+v", dm)
	}
	// Market without its own image falls back to the event image.
	if dm.Image != "event.png" {
		t.Errorf("got image %q, want event fallback", dm.Image)
	}
	if want := "https://polymarket.com/event/big-event/will-it-happen"; dm.URL != want {
		t.Errorf("got url %q, want %q", dm.URL, want)
	}

	m.Image = "market.png"
	dm, _ = m.ToDomainMarket(ev)
	if dm.Image != "market.png" {
		t.Errorf("market image should win over event image, got %q", dm.Image)
	}
}
