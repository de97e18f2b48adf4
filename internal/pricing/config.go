package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidConfig is returned when a rate card cannot produce a well-formed fare.
var ErrInvalidConfig = errors.New("invalid fare config")

// TierRates holds the per-tier prices of the rate card.
type TierRates struct {
	BasePrice       float64 `json:"base_price"`
	IntervalRate    float64 `json:"interval_rate"`
	PlatformFeeBase float64 `json:"platform_fee_base"`
}

// PlatformFeeStep replaces the tier platform fee once the wait strictly exceeds OverMinutes.
type PlatformFeeStep struct {
	OverMinutes float64 `json:"over_minutes"`
	Fee         float64 `json:"fee"`
}

// Config is the rate card: every constant the fare calculation depends on.
type Config struct {
	Tiers            map[ServiceTier]TierRates `json:"tiers"`
	IntervalMinutes  float64                   `json:"interval_minutes"`
	PlatformFeeSteps []PlatformFeeStep         `json:"platform_fee_steps"`
	RushFee          float64                   `json:"rush_fee"`

	TaxRates            map[string]float64 `json:"tax_rates"`
	DefaultTaxRate      float64            `json:"default_tax_rate"`
	StrictJurisdictions bool               `json:"strict_jurisdictions"`

	WorkerBaseDeduction      float64 `json:"worker_base_deduction"`
	WorkerDeductionIncrement float64 `json:"worker_deduction_increment"`
	DeductionFreeMinutes     float64 `json:"deduction_free_minutes"`
	DeductionStepMinutes     float64 `json:"deduction_step_minutes"`

	Currency string `json:"currency"`
}

// DefaultConfig returns the canonical SkipQ rate card (Ontario, CAD, 13% HST).
func DefaultConfig() Config {
	return Config{
		Tiers: map[ServiceTier]TierRates{
			HoldShare:  {BasePrice: 4.00, IntervalRate: 0.75, PlatformFeeBase: 1.00},
			HoldSwitch: {BasePrice: 7.00, IntervalRate: 1.25, PlatformFeeBase: 1.50},
		},
		IntervalMinutes: 4,
		PlatformFeeSteps: []PlatformFeeStep{
			{OverMinutes: 60, Fee: 1.75},
			{OverMinutes: 90, Fee: 2.00},
			{OverMinutes: 120, Fee: 2.50},
		},
		RushFee:                  2.50,
		TaxRates:                 map[string]float64{"ON": 0.13},
		DefaultTaxRate:           0.13,
		WorkerBaseDeduction:      0.75,
		WorkerDeductionIncrement: 0.50,
		DeductionFreeMinutes:     60,
		DeductionStepMinutes:     30,
		Currency:                 "CAD",
	}
}

// Validate reports the first problem that would make Calculate produce a malformed fare.
func (c Config) Validate() error {
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: no service tiers configured", ErrInvalidConfig)
	}
	for _, tier := range Tiers() {
		if _, ok := c.Tiers[tier]; !ok {
			return fmt.Errorf("%w: tier %s has no rates", ErrInvalidConfig, tier)
		}
	}
	for tier, rates := range c.Tiers {
		if !tier.Valid() {
			return fmt.Errorf("%w: unknown tier %q", ErrInvalidConfig, tier)
		}
		if !nonNegative(rates.BasePrice) || !nonNegative(rates.IntervalRate) || !nonNegative(rates.PlatformFeeBase) {
			return fmt.Errorf("%w: tier %s has a negative or non-finite rate", ErrInvalidConfig, tier)
		}
	}
	if !(c.IntervalMinutes > 0) || math.IsInf(c.IntervalMinutes, 0) {
		return fmt.Errorf("%w: interval_minutes must be greater than 0", ErrInvalidConfig)
	}
	if !(c.DeductionStepMinutes > 0) || math.IsInf(c.DeductionStepMinutes, 0) {
		return fmt.Errorf("%w: deduction_step_minutes must be greater than 0", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"rush_fee":                   c.RushFee,
		"worker_base_deduction":      c.WorkerBaseDeduction,
		"worker_deduction_increment": c.WorkerDeductionIncrement,
		"deduction_free_minutes":     c.DeductionFreeMinutes,
	} {
		if !nonNegative(v) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidConfig, name)
		}
	}
	if !validTaxRate(c.DefaultTaxRate) {
		return fmt.Errorf("%w: default_tax_rate must be in [0, 1)", ErrInvalidConfig)
	}
	for code, rate := range c.TaxRates {
		if code == "" || !validTaxRate(rate) {
			return fmt.Errorf("%w: tax rate for jurisdiction %q is invalid", ErrInvalidConfig, code)
		}
	}
	for i, step := range c.PlatformFeeSteps {
		if !nonNegative(step.OverMinutes) || !nonNegative(step.Fee) {
			return fmt.Errorf("%w: platform fee step %d is invalid", ErrInvalidConfig, i)
		}
		if i > 0 && step.OverMinutes <= c.PlatformFeeSteps[i-1].OverMinutes {
			return fmt.Errorf("%w: platform fee steps must be strictly ascending", ErrInvalidConfig)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can edit a card without aliasing the original.
func (c Config) Clone() Config {
	out := c
	out.Tiers = make(map[ServiceTier]TierRates, len(c.Tiers))
	for k, v := range c.Tiers {
		out.Tiers[k] = v
	}
	out.TaxRates = make(map[string]float64, len(c.TaxRates))
	for k, v := range c.TaxRates {
		out.TaxRates[k] = v
	}
	out.PlatformFeeSteps = append([]PlatformFeeStep(nil), c.PlatformFeeSteps...)
	return out
}

// SortSteps orders platform fee steps by threshold.
func (c *Config) SortSteps() {
	sort.Slice(c.PlatformFeeSteps, func(i, j int) bool {
		return c.PlatformFeeSteps[i].OverMinutes < c.PlatformFeeSteps[j].OverMinutes
	})
}

// validTaxRate reports whether rate is a fraction in [0, 1).
func validTaxRate(rate float64) bool {
	return rate >= 0 && rate < 1
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
