// Package ratecard persists the fare calculator's configuration so prices can
// change per deployment without a release.
package ratecard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/skipq/internal/db"
	"github.com/Simplici0/skipq/internal/pricing"
)

// ErrNotSeeded means the fare_config singleton row is missing.
var ErrNotSeeded = errors.New("fare config singleton not found")

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// Load assembles the current rate card.
func (s *Store) Load(ctx context.Context) (pricing.Config, error) {
	var cfg pricing.Config
	err := s.db.QueryRowContext(ctx, `
		SELECT
			interval_minutes,
			rush_fee,
			worker_base_deduction,
			worker_deduction_increment,
			deduction_free_minutes,
			deduction_step_minutes,
			default_tax_rate,
			strict_jurisdictions,
			currency
		FROM fare_config
		WHERE id = 1
	`).Scan(
		&cfg.IntervalMinutes,
		&cfg.RushFee,
		&cfg.WorkerBaseDeduction,
		&cfg.WorkerDeductionIncrement,
		&cfg.DeductionFreeMinutes,
		&cfg.DeductionStepMinutes,
		&cfg.DefaultTaxRate,
		&cfg.StrictJurisdictions,
		&cfg.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pricing.Config{}, ErrNotSeeded
		}
		return pricing.Config{}, fmt.Errorf("query fare_config: %w", err)
	}

	if cfg.Tiers, err = s.loadTiers(ctx); err != nil {
		return pricing.Config{}, err
	}
	if cfg.PlatformFeeSteps, err = s.loadSteps(ctx); err != nil {
		return pricing.Config{}, err
	}
	if cfg.TaxRates, err = s.loadJurisdictions(ctx); err != nil {
		return pricing.Config{}, err
	}

	return cfg, nil
}

func (s *Store) loadTiers(ctx context.Context) (map[pricing.ServiceTier]pricing.TierRates, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier, base_price, interval_rate, platform_fee_base
		FROM service_tiers
	`)
	if err != nil {
		return nil, fmt.Errorf("query service tiers: %w", err)
	}
	defer rows.Close()

	tiers := make(map[pricing.ServiceTier]pricing.TierRates)
	for rows.Next() {
		var tier string
		var rates pricing.TierRates
		if err := rows.Scan(&tier, &rates.BasePrice, &rates.IntervalRate, &rates.PlatformFeeBase); err != nil {
			return nil, fmt.Errorf("scan service tier: %w", err)
		}
		tiers[pricing.ServiceTier(tier)] = rates
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service tiers: %w", err)
	}
	return tiers, nil
}

func (s *Store) loadSteps(ctx context.Context) ([]pricing.PlatformFeeStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT over_minutes, fee
		FROM platform_fee_steps
		ORDER BY over_minutes ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query platform fee steps: %w", err)
	}
	defer rows.Close()

	steps := make([]pricing.PlatformFeeStep, 0)
	for rows.Next() {
		var step pricing.PlatformFeeStep
		if err := rows.Scan(&step.OverMinutes, &step.Fee); err != nil {
			return nil, fmt.Errorf("scan platform fee step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platform fee steps: %w", err)
	}
	return steps, nil
}

func (s *Store) loadJurisdictions(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, rate
		FROM tax_jurisdictions
		WHERE active = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("query tax jurisdictions: %w", err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var code string
		var rate float64
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, fmt.Errorf("scan tax jurisdiction: %w", err)
		}
		rates[code] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax jurisdictions: %w", err)
	}
	return rates, nil
}

// Save validates cfg and replaces the whole rate card atomically. Jurisdictions
// missing from cfg are deactivated, not deleted.
func (s *Store) Save(ctx context.Context, cfg pricing.Config) error {
	cfg = normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	return db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
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
			) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				interval_minutes = excluded.interval_minutes,
				rush_fee = excluded.rush_fee,
				worker_base_deduction = excluded.worker_base_deduction,
				worker_deduction_increment = excluded.worker_deduction_increment,
				deduction_free_minutes = excluded.deduction_free_minutes,
				deduction_step_minutes = excluded.deduction_step_minutes,
				default_tax_rate = excluded.default_tax_rate,
				strict_jurisdictions = excluded.strict_jurisdictions,
				currency = excluded.currency,
				updated_at = CURRENT_TIMESTAMP
		`,
			cfg.IntervalMinutes,
			cfg.RushFee,
			cfg.WorkerBaseDeduction,
			cfg.WorkerDeductionIncrement,
			cfg.DeductionFreeMinutes,
			cfg.DeductionStepMinutes,
			cfg.DefaultTaxRate,
			cfg.StrictJurisdictions,
			cfg.Currency,
		); err != nil {
			return fmt.Errorf("upsert fare_config: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM service_tiers`); err != nil {
			return fmt.Errorf("clear service tiers: %w", err)
		}
		for tier, rates := range cfg.Tiers {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO service_tiers (tier, base_price, interval_rate, platform_fee_base)
				VALUES (?, ?, ?, ?)
			`, string(tier), rates.BasePrice, rates.IntervalRate, rates.PlatformFeeBase); err != nil {
				return fmt.Errorf("insert service tier %s: %w", tier, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM platform_fee_steps`); err != nil {
			return fmt.Errorf("clear platform fee steps: %w", err)
		}
		for _, step := range cfg.PlatformFeeSteps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO platform_fee_steps (over_minutes, fee) VALUES (?, ?)
			`, step.OverMinutes, step.Fee); err != nil {
				return fmt.Errorf("insert platform fee step: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tax_jurisdictions SET active = FALSE`); err != nil {
			return fmt.Errorf("deactivate tax jurisdictions: %w", err)
		}
		for code, rate := range cfg.TaxRates {
			if err := upsertJurisdiction(ctx, tx, code, rate); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetJurisdiction creates or updates a single jurisdiction's tax rate.
func (s *Store) SetJurisdiction(ctx context.Context, code string, rate float64) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("%w: jurisdiction code is required", pricing.ErrInvalidConfig)
	}
	if !(rate >= 0 && rate < 1) {
		return fmt.Errorf("%w: tax rate for %s must be in [0, 1)", pricing.ErrInvalidConfig, code)
	}
	return upsertJurisdiction(ctx, s.db, code, rate)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertJurisdiction(ctx context.Context, e execer, code string, rate float64) error {
	if _, err := e.ExecContext(ctx, `
		INSERT INTO tax_jurisdictions (code, rate, active)
		VALUES (?, ?, TRUE)
		ON CONFLICT(code) DO UPDATE SET
			rate = excluded.rate,
			active = TRUE,
			updated_at = CURRENT_TIMESTAMP
	`, code, rate); err != nil {
		return fmt.Errorf("upsert tax jurisdiction %s: %w", code, err)
	}
	return nil
}

func normalize(cfg pricing.Config) pricing.Config {
	out := cfg.Clone()
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	out.TaxRates = make(map[string]float64, len(cfg.TaxRates))
	for code, rate := range cfg.TaxRates {
		out.TaxRates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	out.SortSteps()
	return out
}
