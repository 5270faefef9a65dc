// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the live form.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/zscore/internal/domain/form"
	"github.com/okian/zscore/internal/domain/zscore"
	"github.com/okian/zscore/pkg/logger"
	"github.com/okian/zscore/pkg/metrics"
)

// Service fronts the z-score engine. It holds no calculation state; it only
// logs and counts invocations so operators can see how the calculator is
// used.
type Service struct {
	mu sync.RWMutex

	started   bool
	startedAt time.Time
	now       func() time.Time

	calculations atomic.Int64
	rejections   atomic.Int64
	tierCounts   [len(tierSlots)]atomic.Int64

	logger logger.Logger
}

// tierSlots fixes the array size for per-tier counters.
var tierSlots = [...]zscore.Tier{
	zscore.SignificantlyBelow, zscore.Below, zscore.SlightlyBelow, zscore.AtMean,
	zscore.SlightlyAbove, zscore.Above, zscore.SignificantlyAbove,
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service.
func New(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the service ready. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "z-score service started")
	return nil
}

// Stop marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "z-score service stopped",
		logger.Int64("calculations", s.calculations.Load()),
		logger.Int64("rejections", s.rejections.Load()),
	)
}

// Validate checks the raw inputs and records any failures.
func (s *Service) Validate(ctx context.Context, in zscore.Input) zscore.FieldErrors {
	errs := zscore.ValidateInput(in)
	s.observeValidation(ctx, errs)
	return errs
}

// Calculate validates in and computes the result when every field is valid.
func (s *Service) Calculate(ctx context.Context, in zscore.Input) (*zscore.Result, zscore.FieldErrors) {
	r, errs := zscore.Calculate(in)
	if !errs.Valid() {
		s.observeValidation(ctx, errs)
		return nil, errs
	}
	s.observeResult(ctx, r)
	return r, errs
}

// ApplyForm runs one form interaction. Recomputations and explicit
// calculations are counted like direct calculations.
func (s *Service) ApplyForm(ctx context.Context, f form.Form, a form.Action) (form.Form, error) {
	next, err := form.Apply(f, a)
	if err != nil {
		s.log().Debug(ctx, "form action rejected", logger.String("action", string(a.Type)), logger.Error(err))
		return f, err
	}
	metrics.RecordFormAction(string(a.Type))

	switch {
	case next.Result != nil && a.Type != form.ActionReset:
		s.observeResult(ctx, next.Result)
	case a.Type == form.ActionCalculate:
		s.observeValidation(ctx, zscore.ValidateInput(next.Input))
	}
	return next, nil
}

func (s *Service) observeResult(ctx context.Context, r *zscore.Result) {
	s.calculations.Add(1)
	s.tierCounts[r.Tier].Add(1)
	metrics.RecordCalculation(r.Tier.String())
	s.log().Debug(ctx, "z-score computed",
		logger.Float64("z", r.ZScore),
		logger.String("tier", r.Tier.String()),
	)
}

func (s *Service) observeValidation(ctx context.Context, errs zscore.FieldErrors) {
	if errs.Valid() {
		return
	}
	s.rejections.Add(1)
	for field, kind := range errs {
		metrics.RecordValidationFailure(string(field), string(kind))
	}
	s.log().Debug(ctx, "inputs rejected", logger.Error(errs.Err()))
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Named("service")
	}
	return l
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiers := make(map[string]int64, len(tierSlots))
	for _, t := range tierSlots {
		tiers[t.String()] = s.tierCounts[t].Load()
	}

	stats := map[string]interface{}{
		"started":      s.started,
		"calculations": s.calculations.Load(),
		"rejections":   s.rejections.Load(),
		"tiers":        tiers,
	}
	if s.started {
		stats["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
	}
	return stats
}
