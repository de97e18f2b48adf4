package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/skipq/internal/earnings"
	"github.com/Simplici0/skipq/internal/logger"
	"github.com/Simplici0/skipq/internal/metrics"
	"github.com/Simplici0/skipq/internal/pricing"
)

// RateSource supplies the rate card in force at the moment a fare is computed.
type RateSource interface {
	Load(ctx context.Context) (pricing.Config, error)
}

// Service runs the request lifecycle and takes the fare snapshots.
type Service struct {
	store               *Store
	rates               RateSource
	metrics             *metrics.Fares
	log                 *zap.Logger
	now                 func() time.Time
	defaultJurisdiction string
}

type Option func(*Service)

func WithMetrics(m *metrics.Fares) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(log) }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultJurisdiction fills the jurisdiction of requests posted without one.
func WithDefaultJurisdiction(code string) Option {
	return func(s *Service) { s.defaultJurisdiction = strings.ToUpper(strings.TrimSpace(code)) }
}

func NewService(store *Store, rates RateSource, opts ...Option) *Service {
	s := &Service{
		store: store,
		rates: rates,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices a job without persisting anything.
func (s *Service) Quote(ctx context.Context, in pricing.FareInput) (pricing.FareBreakdown, error) {
	in.Jurisdiction = strings.ToUpper(strings.TrimSpace(in.Jurisdiction))
	if in.Jurisdiction == "" {
		in.Jurisdiction = s.defaultJurisdiction
	}
	return s.price(ctx, "quote", in)
}

// Create posts a request with its estimate snapshot.
func (s *Service) Create(ctx context.Context, in NewRequest) (Request, error) {
	jurisdiction := strings.ToUpper(strings.TrimSpace(in.Jurisdiction))
	if jurisdiction == "" {
		jurisdiction = s.defaultJurisdiction
	}

	estimate, err := s.price(ctx, "estimate", pricing.FareInput{
		Tier:          in.Tier,
		WaitMinutes:   in.WaitMinutes,
		RushRequested: in.Rush,
		Jurisdiction:  jurisdiction,
	})
	if err != nil {
		return Request{}, err
	}

	r := Request{
		ID:                   uuid.NewString(),
		CreatedAt:            s.now().UTC(),
		Title:                strings.TrimSpace(in.Title),
		Location:             strings.TrimSpace(in.Location),
		City:                 strings.TrimSpace(in.City),
		Description:          strings.TrimSpace(in.Description),
		RequesterID:          in.RequesterID,
		Tier:                 in.Tier,
		EstimatedWaitMinutes: in.WaitMinutes,
		Rush:                 in.Rush,
		Jurisdiction:         jurisdiction,
		Status:               StatusOpen,
		Estimate:             estimate,
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return Request{}, err
	}

	s.log.Info("request posted",
		zap.String("request_id", r.ID),
		zap.String("tier", string(r.Tier)),
		zap.Float64("estimated_wait_minutes", r.EstimatedWaitMinutes),
		zap.Float64("estimated_total", estimate.Total),
	)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Feed(ctx context.Context, f FeedFilter) ([]Request, error) {
	return s.store.ListOpen(ctx, f)
}

func (s *Service) Accept(ctx context.Context, id, workerID string) (Request, error) {
	if err := s.store.Accept(ctx, id, workerID); err != nil {
		return Request{}, err
	}
	s.log.Info("request accepted", zap.String("request_id", id), zap.String("worker_id", workerID))
	return s.store.Get(ctx, id)
}

// Complete prices the job at its actual wait against the current rate card and
// stores that final snapshot. The estimate snapshot is left untouched.
func (s *Service) Complete(ctx context.Context, id string, actualWaitMinutes float64) (Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Status != StatusInProgress {
		return Request{}, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, r.Status)
	}

	final, err := s.price(ctx, "final", pricing.FareInput{
		Tier:          r.Tier,
		WaitMinutes:   actualWaitMinutes,
		RushRequested: r.Rush,
		Jurisdiction:  r.Jurisdiction,
	})
	if err != nil {
		return Request{}, err
	}

	if err := s.store.Complete(ctx, id, actualWaitMinutes, s.now().UTC(), final); err != nil {
		return Request{}, err
	}

	s.log.Info("request completed",
		zap.String("request_id", id),
		zap.String("worker_id", r.WorkerID),
		zap.Float64("actual_wait_minutes", actualWaitMinutes),
		zap.Float64("total", final.Total),
		zap.Float64("worker_payout", final.WorkerPayout),
	)
	return s.store.Get(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id string) (Request, error) {
	if err := s.store.Cancel(ctx, id); err != nil {
		return Request{}, err
	}
	s.log.Info("request cancelled", zap.String("request_id", id))
	return s.store.Get(ctx, id)
}

// Earnings summarizes a worker's payouts from the final snapshots of their
// completed jobs in the period ending now.
func (s *Service) Earnings(ctx context.Context, workerID string, period earnings.Period) (earnings.Summary, error) {
	done, err := s.store.ListCompletedByWorker(ctx, workerID, period.Since(s.now().UTC()))
	if err != nil {
		return earnings.Summary{}, err
	}

	entries := make([]earnings.Entry, 0, len(done))
	for _, r := range done {
		charge := r.Charge()
		entry := earnings.Entry{
			RequestID:   r.ID,
			Amount:      charge.WorkerPayout,
			Tier:        r.Tier,
			WaitMinutes: charge.WaitMinutes,
			Location:    r.Location,
		}
		if r.CompletedAt != nil {
			entry.CompletedAt = *r.CompletedAt
		}
		entries = append(entries, entry)
	}
	return earnings.Summarize(entries, period), nil
}

func (s *Service) price(ctx context.Context, purpose string, in pricing.FareInput) (pricing.FareBreakdown, error) {
	cfg, err := s.rates.Load(ctx)
	if err != nil {
		return pricing.FareBreakdown{}, fmt.Errorf("load rate card: %w", err)
	}

	fare, err := pricing.Calculate(cfg, in)
	if err != nil {
		s.metrics.ObserveRejection(err)
		return pricing.FareBreakdown{}, err
	}
	s.metrics.ObserveFare(purpose, fare)

	if fare.TaxRateDefaulted {
		s.log.Warn("jurisdiction has no tax rate, using default",
			zap.String("purpose", purpose),
			zap.String("jurisdiction", fare.Jurisdiction),
			zap.Float64("tax_rate", fare.TaxRate),
		)
	}
	if fare.PayoutClamped {
		s.log.Warn("worker payout clamped to zero, flag for review",
			zap.String("purpose", purpose),
			zap.String("tier", string(fare.Tier)),
			zap.Float64("wait_minutes", fare.WaitMinutes),
			zap.Float64("worker_deduction", fare.WorkerDeduction),
		)
	}
	return fare, nil
}
