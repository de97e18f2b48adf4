package main

import (
	"net/http"
	"testing"

	"github.com/Simplici0/skipq/internal/pricing"
	"github.com/Simplici0/skipq/internal/validation"
	"github.com/Simplici0/skipq/internal/waittime"
)

func TestHandleQuoteReturnsBreakdown(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv.routes(), http.MethodPost, "/api/quotes", map[string]any{
		"service_tier": "hold-share",
		"wait_minutes": 125,
		"rush":         true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	fare := decodeBody[pricing.FareBreakdown](t, rr)
	if fare.Total != 37.29 || fare.WorkerPayout != 26.25 {
		t.Fatalf("unexpected fare total=%v payout=%v", fare.Total, fare.WorkerPayout)
	}
	if fare.Intervals != 32 || fare.PlatformFee != 2.50 || fare.RushFee != 2.50 {
		t.Fatalf("unexpected line items: %+v", fare)
	}
	if fare.Jurisdiction != "ON" || fare.Currency != "CAD" {
		t.Fatalf("expected ON/CAD defaults, got %s/%s", fare.Jurisdiction, fare.Currency)
	}
}

func TestHandleQuoteAcceptsZeroWait(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv.routes(), http.MethodPost, "/api/quotes", map[string]any{
		"service_tier": "hold-switch",
		"wait_minutes": 0,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if fare := decodeBody[pricing.FareBreakdown](t, rr); fare.Intervals != 0 || fare.TimeBasedFee != 0 {
		t.Fatalf("expected no time-based fee, got %+v", fare)
	}
}

func TestHandleQuoteRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{name: "negative wait", body: map[string]any{"service_tier": "hold-share", "wait_minutes": -5}, field: "wait_minutes"},
		{name: "missing wait", body: map[string]any{"service_tier": "hold-share"}, field: "wait_minutes"},
		{name: "wait above one day", body: map[string]any{"service_tier": "hold-share", "wait_minutes": 1e30}, field: "wait_minutes"},
		{name: "wait just above one day", body: map[string]any{"service_tier": "hold-share", "wait_minutes": 1440.5}, field: "wait_minutes"},
		{name: "unknown tier", body: map[string]any{"service_tier": "hold-everything", "wait_minutes": 10}, field: "service_tier"},
		{name: "missing tier", body: map[string]any{"wait_minutes": 10}, field: "service_tier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/quotes", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
			}
			got := decodeBody[validation.Error](t, rr)
			if _, ok := got.Errors[tt.field]; !ok {
				t.Fatalf("expected error for %s, got %v", tt.field, got.Errors)
			}
		})
	}
}

func TestHandleQuoteStrictJurisdiction(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	cfg := pricing.DefaultConfig()
	cfg.StrictJurisdictions = true
	if rr := do(t, h, http.MethodPut, "/api/admin/fare-config", cfg); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 saving config, got %d: %s", rr.Code, rr.Body.String())
	}

	rr := do(t, h, http.MethodPost, "/api/quotes", map[string]any{
		"service_tier": "hold-share",
		"wait_minutes": 30,
		"jurisdiction": "QC",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[validation.Error](t, rr); got.Errors["jurisdiction"] == "" {
		t.Fatalf("expected jurisdiction error, got %v", got.Errors)
	}
}

func TestHandleQuoteRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	for _, body := range []string{`{"service_tier":`, `{"service_tier":"hold-share","wait_minutes":5,"tip":1}`} {
		if rr := do(t, h, http.MethodPost, "/api/quotes", body); rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status 400, got %d", body, rr.Code)
		}
	}
}

func TestHandleWaitEstimate(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := do(t, h, http.MethodGet, "/api/wait-estimates?location=passport-office&time_of_day=midday&people_ahead=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[waittime.Estimate](t, rr)
	if got.Minutes != 182 || got.SliderMinutes != 180 || got.Confidence != "high" {
		t.Fatalf("unexpected estimate: %+v", got)
	}

	for _, query := range []string{"people_ahead=-1", "people_ahead=ten", "time_of_day=brunch"} {
		if rr := do(t, h, http.MethodGet, "/api/wait-estimates?"+query, nil); rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("query %q: expected status 422, got %d", query, rr.Code)
		}
	}
}

func TestHandleLocations(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv.routes(), http.MethodGet, "/api/locations", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	got := decodeBody[[]waittime.Location](t, rr)
	if len(got) != 5 || got[0].Name != "Apple Store" {
		t.Fatalf("expected 5 locations ordered by name, got %+v", got)
	}
}
