package gamma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetEventsQueryAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "100" || q.Get("offset") != "200" {
			t.Errorf("unexpected pagination params: %s", r.URL.RawQuery)
		}
		if q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("missing active/closed filters: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","title":"T","slug":"t","markets":[{"id":"m","slug":"m-slug","question":"q","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.4\",\"0.6\"]","volumeNum":123.5,"liquidityNum":10}]}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	events, err := c.GetEvents(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 || len(events[0].Markets) != 1 {
		t.Fatalf("unexpected decode result: %+v", events)
	}
	if events[0].Markets[0].VolumeNum != 123.5 {
		t.Errorf("got volume %v, want 123.5", events[0].Markets[0].VolumeNum)
	}
}

func TestGetEventsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.GetEvents(context.Background(), 100, 0); err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}
