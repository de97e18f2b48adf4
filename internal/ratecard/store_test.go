package ratecard

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Simplici0/skipq/internal/db"
	"github.com/Simplici0/skipq/internal/migrations"
	"github.com/Simplici0/skipq/internal/pricing"
)

func TestLoadBeforeSeed(t *testing.T) {
	store := NewStore(newRateCardTestDB(t))

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNotSeeded) {
		t.Fatalf("expected ErrNotSeeded, got %v", err)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newRateCardTestDB(t))

	cfg := pricing.DefaultConfig()
	cfg.Currency = "cad"
	cfg.TaxRates = map[string]float64{"on": 0.13, "QC": 0.14975}
	// Out of order on purpose; Save sorts by threshold.
	cfg.PlatformFeeSteps = []pricing.PlatformFeeStep{
		{OverMinutes: 120, Fee: 2.50},
		{OverMinutes: 60, Fee: 1.75},
		{OverMinutes: 90, Fee: 2.00},
	}

	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("save rate card: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load rate card: %v", err)
	}
	if got.Currency != "CAD" {
		t.Fatalf("currency=%q, want CAD", got.Currency)
	}
	if got.TaxRates["ON"] != 0.13 || got.TaxRates["QC"] != 0.14975 || len(got.TaxRates) != 2 {
		t.Fatalf("unexpected tax rates: %v", got.TaxRates)
	}
	if len(got.PlatformFeeSteps) != 3 || got.PlatformFeeSteps[0].OverMinutes != 60 || got.PlatformFeeSteps[2].Fee != 2.50 {
		t.Fatalf("unexpected fee steps: %+v", got.PlatformFeeSteps)
	}
	if got.Tiers[pricing.HoldSwitch] != cfg.Tiers[pricing.HoldSwitch] {
		t.Fatalf("hold-switch rates=%+v, want %+v", got.Tiers[pricing.HoldSwitch], cfg.Tiers[pricing.HoldSwitch])
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("loaded card does not validate: %v", err)
	}
}

func TestSaveDeactivatesDroppedJurisdictions(t *testing.T) {
	ctx := context.Background()
	database := newRateCardTestDB(t)
	store := NewStore(database)

	cfg := pricing.DefaultConfig()
	cfg.TaxRates = map[string]float64{"ON": 0.13, "QC": 0.14975}
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("save rate card: %v", err)
	}

	cfg.TaxRates = map[string]float64{"ON": 0.13}
	if err := store.Save(ctx, cfg); err != nil {
		t.Fatalf("save rate card without QC: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load rate card: %v", err)
	}
	if _, ok := got.TaxRates["QC"]; ok {
		t.Fatalf("QC should be inactive, got %v", got.TaxRates)
	}

	var rows int
	if err := database.QueryRow(`SELECT COUNT(*) FROM tax_jurisdictions WHERE code = 'QC'`).Scan(&rows); err != nil {
		t.Fatalf("count QC rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("QC row should be kept for history, got %d rows", rows)
	}
}

func TestSaveRejectsInvalidCard(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newRateCardTestDB(t))

	if err := store.Save(ctx, pricing.DefaultConfig()); err != nil {
		t.Fatalf("save rate card: %v", err)
	}

	bad := pricing.DefaultConfig()
	bad.IntervalMinutes = 0
	if err := store.Save(ctx, bad); !errors.Is(err, pricing.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	missingTier := pricing.DefaultConfig()
	delete(missingTier.Tiers, pricing.HoldSwitch)
	if err := store.Save(ctx, missingTier); !errors.Is(err, pricing.ErrInvalidConfig) {
		t.Fatalf("card without hold-switch: expected ErrInvalidConfig, got %v", err)
	}

	fullTax := pricing.DefaultConfig()
	fullTax.TaxRates["QC"] = 1
	if err := store.Save(ctx, fullTax); !errors.Is(err, pricing.ErrInvalidConfig) {
		t.Fatalf("tax rate of 1: expected ErrInvalidConfig, got %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load rate card: %v", err)
	}
	if got.IntervalMinutes != 4 {
		t.Fatalf("interval_minutes=%v, rejected save must not change the card", got.IntervalMinutes)
	}
	if _, ok := got.Tiers[pricing.HoldSwitch]; !ok {
		t.Fatalf("rejected save dropped hold-switch: %+v", got.Tiers)
	}
}

func TestSetJurisdiction(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newRateCardTestDB(t))

	if err := store.Save(ctx, pricing.DefaultConfig()); err != nil {
		t.Fatalf("save rate card: %v", err)
	}
	if err := store.SetJurisdiction(ctx, " bc ", 0.12); err != nil {
		t.Fatalf("set jurisdiction: %v", err)
	}
	if err := store.SetJurisdiction(ctx, "ON", 0.15); err != nil {
		t.Fatalf("update jurisdiction: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load rate card: %v", err)
	}
	if got.TaxRates["BC"] != 0.12 || got.TaxRates["ON"] != 0.15 {
		t.Fatalf("unexpected tax rates: %v", got.TaxRates)
	}

	for _, tc := range []struct {
		code string
		rate float64
	}{
		{code: "", rate: 0.1},
		{code: "AB", rate: -0.01},
		{code: "AB", rate: 1},
	} {
		if err := store.SetJurisdiction(ctx, tc.code, tc.rate); !errors.Is(err, pricing.ErrInvalidConfig) {
			t.Fatalf("SetJurisdiction(%q, %v): expected ErrInvalidConfig, got %v", tc.code, tc.rate, err)
		}
	}
}

func newRateCardTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "ratecard-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(ctx, database, "../../migrations", nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}
