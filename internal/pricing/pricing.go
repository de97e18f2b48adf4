package pricing

import (
	"fmt"
	"math"
	"strings"
)

// MaxWaitMinutes is the longest wait a single job can bill: one day.
const MaxWaitMinutes = 24 * 60

// FareInput represents the job attributes a fare is computed from.
type FareInput struct {
	Tier          ServiceTier
	WaitMinutes   float64
	RushRequested bool
	// Jurisdiction selects the tax rate; empty means the platform default.
	Jurisdiction string
}

// FareBreakdown contains every line item of a fare. Only Total is rounded.
type FareBreakdown struct {
	Tier            ServiceTier `json:"service_tier"`
	WaitMinutes     float64     `json:"wait_minutes"`
	BasePrice       float64     `json:"base_price"`
	Intervals       int         `json:"intervals"`
	TimeBasedFee    float64     `json:"time_based_fee"`
	PlatformFee     float64     `json:"platform_fee"`
	RushFee         float64     `json:"rush_fee"`
	Subtotal        float64     `json:"subtotal"`
	Jurisdiction    string      `json:"jurisdiction,omitempty"`
	TaxRate         float64     `json:"tax_rate"`
	Tax             float64     `json:"tax"`
	Total           float64     `json:"total"`
	WorkerDeduction float64     `json:"worker_deduction"`
	WorkerPayout    float64     `json:"worker_payout"`
	Currency        string      `json:"currency"`

	// TaxRateDefaulted is set when the jurisdiction had no configured rate.
	TaxRateDefaulted bool `json:"tax_rate_defaulted,omitempty"`
	// PayoutClamped marks a fare for manual review: the payout formula went negative.
	PayoutClamped bool `json:"payout_clamped,omitempty"`
}

// Calculate computes the requester charge and worker payout for a job.
func Calculate(cfg Config, in FareInput) (FareBreakdown, error) {
	if err := cfg.Validate(); err != nil {
		return FareBreakdown{}, err
	}
	if math.IsNaN(in.WaitMinutes) || math.IsInf(in.WaitMinutes, 0) || in.WaitMinutes < 0 || in.WaitMinutes > MaxWaitMinutes {
		return FareBreakdown{}, invalid("wait_minutes", in.WaitMinutes, ErrInvalidWaitTime)
	}
	if !in.Tier.Valid() {
		return FareBreakdown{}, invalid("service_tier", string(in.Tier), ErrUnknownTier)
	}
	rates, ok := cfg.Tiers[in.Tier]
	if !ok {
		return FareBreakdown{}, fmt.Errorf("%w: tier %s has no rates", ErrInvalidConfig, in.Tier)
	}

	jurisdiction := strings.ToUpper(strings.TrimSpace(in.Jurisdiction))
	taxRate, found := cfg.TaxRates[jurisdiction]
	if !found {
		if cfg.StrictJurisdictions {
			return FareBreakdown{}, invalid("jurisdiction", in.Jurisdiction, ErrUnknownJurisdiction)
		}
		taxRate = cfg.DefaultTaxRate
	}

	intervals := int(math.Ceil(in.WaitMinutes / cfg.IntervalMinutes))
	timeBasedFee := float64(intervals) * rates.IntervalRate
	platformFee := platformFeeFor(cfg, rates, in.WaitMinutes)

	rushFee := 0.0
	if in.RushRequested {
		rushFee = cfg.RushFee
	}

	subtotal := rates.BasePrice + timeBasedFee + platformFee + rushFee
	tax := subtotal * taxRate

	deduction := WorkerDeduction(cfg, in.WaitMinutes)
	payout := rates.BasePrice + timeBasedFee - deduction
	clamped := false
	if payout < 0 {
		payout = 0
		clamped = true
	}

	return FareBreakdown{
		Tier:             in.Tier,
		WaitMinutes:      in.WaitMinutes,
		BasePrice:        rates.BasePrice,
		Intervals:        intervals,
		TimeBasedFee:     timeBasedFee,
		PlatformFee:      platformFee,
		RushFee:          rushFee,
		Subtotal:         subtotal,
		Jurisdiction:     jurisdiction,
		TaxRate:          taxRate,
		Tax:              tax,
		Total:            Round2(subtotal + tax),
		WorkerDeduction:  deduction,
		WorkerPayout:     payout,
		Currency:         cfg.Currency,
		TaxRateDefaulted: !found,
		PayoutClamped:    clamped,
	}, nil
}

// WorkerDeduction is the platform's cut of the worker's earnings for a given wait.
func WorkerDeduction(cfg Config, waitMinutes float64) float64 {
	extra := math.Max(0, waitMinutes-cfg.DeductionFreeMinutes)
	steps := math.Floor(extra / cfg.DeductionStepMinutes)
	return cfg.WorkerBaseDeduction + steps*cfg.WorkerDeductionIncrement
}

// platformFeeFor walks the ascending step table; a wait exactly on a threshold keeps the lower fee.
func platformFeeFor(cfg Config, rates TierRates, waitMinutes float64) float64 {
	fee := rates.PlatformFeeBase
	for _, step := range cfg.PlatformFeeSteps {
		if waitMinutes > step.OverMinutes {
			fee = step.Fee
		}
	}
	return fee
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
