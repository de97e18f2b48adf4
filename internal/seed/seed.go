package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Simplici0/skipq/internal/db"
	"github.com/Simplici0/skipq/internal/pricing"
	"github.com/Simplici0/skipq/internal/waittime"
)

// Config contains the values required by startup seed.
type Config struct {
	Currency            string
	DefaultJurisdiction string
	DefaultTaxRate      float64
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way. Rows that already exist
// are left alone so admin edits survive restarts.
func Run(ctx context.Context, database *sql.DB, cfg Config) (Stats, error) {
	card := pricing.DefaultConfig()
	if cfg.Currency != "" {
		card.Currency = strings.ToUpper(cfg.Currency)
	}
	card.DefaultTaxRate = cfg.DefaultTaxRate

	stats := Stats{}
	err := db.InTx(ctx, database, func(tx *sql.Tx) error {
		if err := ensureFareConfig(ctx, tx, card, &stats); err != nil {
			return err
		}
		if err := ensureTiers(ctx, tx, card, &stats); err != nil {
			return err
		}
		if err := ensurePlatformFeeSteps(ctx, tx, card, &stats); err != nil {
			return err
		}
		if err := ensureJurisdiction(ctx, tx, cfg.DefaultJurisdiction, cfg.DefaultTaxRate, &stats); err != nil {
			return err
		}
		return ensureWaitLocations(ctx, tx, &stats)
	})
	if err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func ensureFareConfig(ctx context.Context, tx *sql.Tx, card pricing.Config, stats *Stats) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO fare_config (
			id,
			interval_minutes,
			rush_fee,
			worker_base_deduction,
			worker_deduction_increment,
			deduction_free_minutes,
			deduction_step_minutes,
			default_tax_rate,
			strict_jurisdictions,
			currency
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		card.IntervalMinutes,
		card.RushFee,
		card.WorkerBaseDeduction,
		card.WorkerDeductionIncrement,
		card.DeductionFreeMinutes,
		card.DeductionStepMinutes,
		card.DefaultTaxRate,
		card.Currency,
	)
	if err != nil {
		return fmt.Errorf("insert fare_config singleton: %w", err)
	}
	return countInserts(result, stats)
}

func ensureTiers(ctx context.Context, tx *sql.Tx, card pricing.Config, stats *Stats) error {
	for _, tier := range pricing.Tiers() {
		rates := card.Tiers[tier]
		result, err := tx.ExecContext(ctx, `
			INSERT INTO service_tiers (tier, base_price, interval_rate, platform_fee_base)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(tier) DO NOTHING
		`, string(tier), rates.BasePrice, rates.IntervalRate, rates.PlatformFeeBase)
		if err != nil {
			return fmt.Errorf("insert service tier %s: %w", tier, err)
		}
		if err := countInserts(result, stats); err != nil {
			return err
		}
	}
	return nil
}

// ensurePlatformFeeSteps only seeds an empty table; a partially edited step
// table is an admin decision, not something to top up.
func ensurePlatformFeeSteps(ctx context.Context, tx *sql.Tx, card pricing.Config, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM platform_fee_steps LIMIT 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check platform fee steps existence: %w", err)
	}
	if exists {
		return nil
	}

	for _, step := range card.PlatformFeeSteps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO platform_fee_steps (over_minutes, fee) VALUES (?, ?)
		`, step.OverMinutes, step.Fee); err != nil {
			return fmt.Errorf("insert platform fee step: %w", err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureJurisdiction(ctx context.Context, tx *sql.Tx, code string, rate float64, stats *Stats) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO tax_jurisdictions (code, rate, active)
		VALUES (?, ?, TRUE)
		ON CONFLICT(code) DO NOTHING
	`, code, rate)
	if err != nil {
		return fmt.Errorf("insert default tax jurisdiction: %w", err)
	}
	return countInserts(result, stats)
}

func ensureWaitLocations(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for _, loc := range waittime.DefaultLocations() {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO wait_locations (id, name, avg_wait_minutes, active)
			VALUES (?, ?, ?, TRUE)
			ON CONFLICT(id) DO NOTHING
		`, loc.ID, loc.Name, loc.AvgWaitMinutes)
		if err != nil {
			return fmt.Errorf("insert wait location %s: %w", loc.ID, err)
		}
		if err := countInserts(result, stats); err != nil {
			return err
		}
	}
	return nil
}

func countInserts(result sql.Result, stats *Stats) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read seed rows affected: %w", err)
	}
	stats.Inserts += int(affected)
	return nil
}
