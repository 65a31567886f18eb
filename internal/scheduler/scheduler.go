package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/billing"
)

const (
	billingTimeout   = 30 * time.Minute
	reconcileTimeout = 5 * time.Minute
)

// BatchBiller generates bills for every active farmer.
type BatchBiller interface {
	GenerateAll(ctx context.Context, from, to time.Time) (billing.BatchResult, error)
}

// Reconciler sweeps deductions that still await reconciliation.
type Reconciler interface {
	ReconcilePending(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	biller     BatchBiller
	reconciler Reconciler
	cfg        config.SchedulerConfig
	location   *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance running in the configured
// timezone.
func NewScheduler(cfg config.SchedulerConfig, biller BatchBiller, reconciler Reconciler, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(location)),
		biller:     biller,
		reconciler: reconciler,
		cfg:        cfg,
		location:   location,
		logger:     logger.Named("scheduler"),
		now:        time.Now,
	}, nil
}

// Start registers the configured jobs and starts the scheduler. Jobs with
// an empty expression are not registered.
func (s *Scheduler) Start() error {
	if s.cfg.BillingCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.BillingCron, s.billPreviousMonth); err != nil {
			return fmt.Errorf("failed to schedule monthly billing: %w", err)
		}
		s.logger.Info("monthly billing scheduled", zap.String("cron", s.cfg.BillingCron))
	}

	if s.cfg.ReconcileCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.ReconcileCron, s.reconcileDeductions); err != nil {
			return fmt.Errorf("failed to schedule deduction reconciliation: %w", err)
		}
		s.logger.Info("deduction reconciliation scheduled", zap.String("cron", s.cfg.ReconcileCron))
	}

	s.logger.Info("starting scheduler", zap.Int("jobs", len(s.cron.Entries())), zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) billPreviousMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), billingTimeout)
	defer cancel()

	// The month boundary is decided in the scheduler's timezone.
	period := models.PreviousMonth(models.DateOnly(s.now().In(s.location)))
	s.logger.Info("running monthly billing",
		zap.String("period_from", period.From.Format(models.DateLayout)),
		zap.String("period_to", period.To.Format(models.DateLayout)),
	)

	result, err := s.biller.GenerateAll(ctx, period.From, period.To)
	if err != nil {
		s.logger.Error("monthly billing failed", zap.Error(err))
		return
	}
	s.logger.Info("monthly billing completed",
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("conflicts", result.Conflicts),
	)
}

func (s *Scheduler) reconcileDeductions() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	n, err := s.reconciler.ReconcilePending(ctx)
	if err != nil {
		s.logger.Error("deduction reconciliation failed", zap.Error(err))
		return
	}
	s.logger.Info("deduction reconciliation completed", zap.Int("reconciled", n))
}
