package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Simplici0/skipq/internal/db"
	"github.com/Simplici0/skipq/internal/migrations"
	"github.com/Simplici0/skipq/internal/seed"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(ctx, database, "../../migrations", nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{Currency: "CAD", DefaultJurisdiction: "ON", DefaultTaxRate: 0.13}); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	return newServer(database, zap.NewNop(), prometheus.NewRegistry(), "ON")
}

// do sends a request through the full router and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response body %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv.routes(), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := decodeBody[map[string]string](t, rr); got["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", got)
	}
}

func TestMetricsExposeFareCounters(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	rr := do(t, h, http.MethodPost, "/api/quotes", map[string]any{
		"service_tier": "hold-switch",
		"wait_minutes": 60,
		"jurisdiction": "NU",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected quote status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, expected := range []string{
		`skipq_fares_computed_total{purpose="quote",tier="hold-switch"} 1`,
		`skipq_tax_rate_fallbacks_total{jurisdiction="NU"} 1`,
	} {
		if !strings.Contains(body, expected) {
			t.Fatalf("expected metrics to contain %q, got:\n%s", expected, body)
		}
	}
}
