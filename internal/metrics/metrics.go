package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Simplici0/skipq/internal/pricing"
)

// Fares counts what the fare path does so configuration gaps and payout
// anomalies show up on dashboards instead of only in logs.
type Fares struct {
	quotes       *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	taxFallbacks *prometheus.CounterVec
	payoutClamps *prometheus.CounterVec
}

// NewFares registers the fare counters with reg. Pass prometheus.NewRegistry() in tests.
func NewFares(reg prometheus.Registerer) *Fares {
	factory := promauto.With(reg)
	return &Fares{
		quotes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skipq_fares_computed_total",
			Help: "Fare breakdowns computed, by service tier and purpose (quote, estimate, final)",
		}, []string{"tier", "purpose"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skipq_fare_validation_errors_total",
			Help: "Fare inputs rejected by validation, by reason",
		}, []string{"reason"}),
		taxFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skipq_tax_rate_fallbacks_total",
			Help: "Fares taxed at the platform default because the jurisdiction had no configured rate",
		}, []string{"jurisdiction"}),
		payoutClamps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skipq_worker_payout_clamps_total",
			Help: "Fares whose worker payout formula went negative and was clamped to zero",
		}, []string{"tier"}),
	}
}

// ObserveFare records a successfully computed breakdown.
func (m *Fares) ObserveFare(purpose string, fare pricing.FareBreakdown) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(string(fare.Tier), purpose).Inc()
	if fare.TaxRateDefaulted {
		jurisdiction := fare.Jurisdiction
		if jurisdiction == "" {
			jurisdiction = "none"
		}
		m.taxFallbacks.WithLabelValues(jurisdiction).Inc()
	}
	if fare.PayoutClamped {
		m.payoutClamps.WithLabelValues(string(fare.Tier)).Inc()
	}
}

// ObserveRejection records a fare input that failed validation.
func (m *Fares) ObserveRejection(err error) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(Reason(err)).Inc()
}

// Reason maps a pricing error onto a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, pricing.ErrInvalidWaitTime):
		return "wait_time"
	case errors.Is(err, pricing.ErrUnknownTier):
		return "tier"
	case errors.Is(err, pricing.ErrUnknownJurisdiction):
		return "jurisdiction"
	case errors.Is(err, pricing.ErrInvalidConfig):
		return "config"
	default:
		return "other"
	}
}
