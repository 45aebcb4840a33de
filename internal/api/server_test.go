package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockpulse/config"
	"stockpulse/models"
	"stockpulse/store"
)

func newTestServer(t *testing.T) (*Server, *store.MarketCache, *store.InsightLog) {
	t.Helper()
	cache := store.NewMarketCache()
	insights := store.NewInsightLog(100)
	srv := NewServer(
		config.APIConfig{Enabled: true, Address: ":0"},
		cache,
		insights,
		[]string{"AAPL", "MSFT"},
		func() string { return "connected" },
	)
	if srv == nil {
		t.Fatal("expected server for enabled config")
	}
	return srv, cache, insights
}

func doRequest(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	router := srv.buildRouter()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)

	body := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestNewServerDisabled(t *testing.T) {
	if srv := NewServer(config.APIConfig{}, nil, nil, nil, nil); srv != nil {
		t.Fatal("expected nil server for disabled config")
	}
}

func TestMarketDataForSymbol(t *testing.T) {
	srv, cache, _ := newTestServer(t)
	cache.Update("AAPL", models.MarketSnapshot{
		Kind:  models.SnapshotKindTrade,
		Trade: models.TradeTick{Symbol: "AAPL", Price: 187.5, TimestampMs: 5, Exchange: "N/A"},
	})

	rec, body := doRequest(t, srv, "/market-data/aapl")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var symbol string
	if err := json.Unmarshal(body["symbol"], &symbol); err != nil || symbol != "AAPL" {
		t.Fatalf("unexpected symbol in response: %s", body["symbol"])
	}

	var snapshot models.MarketSnapshot
	if err := json.Unmarshal(body["data"], &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Trade.Price != 187.5 {
		t.Fatalf("unexpected snapshot price: %v", snapshot.Trade.Price)
	}
}

func TestMarketDataMissingSymbol(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, "/market-data/TSLA")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown symbol, got %d", rec.Code)
	}
}

func TestAllMarketData(t *testing.T) {
	srv, cache, _ := newTestServer(t)
	cache.Update("AAPL", models.MarketSnapshot{Kind: models.SnapshotKindTrade, Trade: models.TradeTick{Symbol: "AAPL", Price: 1}})
	cache.Update("MSFT", models.MarketSnapshot{Kind: models.SnapshotKindTrade, Trade: models.TradeTick{Symbol: "MSFT", Price: 2}})

	rec, body := doRequest(t, srv, "/market-data")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var all map[string]models.MarketSnapshot
	if err := json.Unmarshal(body["all_market_data"], &all); err != nil {
		t.Fatalf("decode all market data: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(all))
	}
}

func TestInsightsFilteringAndPagination(t *testing.T) {
	srv, _, insights := newTestServer(t)
	for i := 1; i <= 4; i++ {
		insights.Append(models.Insight{
			Symbol:           "AAPL",
			EventTimestampMs: int64(i * 100),
			Message:          "m",
		})
	}

	rec, body := doRequest(t, srv, "/insights?from_timestamp=200&to_timestamp=400&limit=2&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var count int
	if err := json.Unmarshal(body["count"], &count); err != nil || count != 2 {
		t.Fatalf("unexpected count: %s", body["count"])
	}

	var results []insightResponse
	if err := json.Unmarshal(body["results"], &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	// filtered newest-first: 400 300 200; offset 1 limit 2 -> 300 200
	if results[0].EventTimestampMs != 300 || results[1].EventTimestampMs != 200 {
		t.Fatalf("unexpected pagination: %+v", results)
	}
	if results[0].EventDatetimeUTC == "" {
		t.Fatal("expected event_datetime_utc to be set")
	}
}

func TestInsightsBySymbol(t *testing.T) {
	srv, _, insights := newTestServer(t)
	insights.Append(models.Insight{Symbol: "AAPL", EventTimestampMs: 1})
	insights.Append(models.Insight{Symbol: "MSFT", EventTimestampMs: 2})

	rec, body := doRequest(t, srv, "/insights/aapl")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var results []insightResponse
	if err := json.Unmarshal(body["insights"], &results); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "AAPL" {
		t.Fatalf("unexpected symbol insights: %+v", results)
	}
}

func TestInsightsInvalidQueryParams(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{
		"/insights?from_timestamp=abc",
		"/insights?to_timestamp=1.5",
		"/insights?limit=x",
		"/insights/AAPL?offset=oops",
	} {
		rec, _ := doRequest(t, srv, path)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec, body := doRequest(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state string
	if err := json.Unmarshal(body["feed_state"], &state); err != nil || state != "connected" {
		t.Fatalf("unexpected feed state: %s", body["feed_state"])
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":          ":8080",
		"8081":      ":8081",
		":9090":     ":9090",
		"0.0.0.0:1": "0.0.0.0:1",
	}
	for in, want := range cases {
		if got := normalizeAddress(in); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", in, got, want)
		}
	}
}
