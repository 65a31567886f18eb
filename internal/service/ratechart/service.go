package ratechart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// Quote is a priced measurement.
type Quote struct {
	MilkType     models.MilkType `json:"milkType"`
	Fat          decimal.Decimal `json:"fat"`
	Snf          decimal.Decimal `json:"snf"`
	Date         time.Time       `json:"date"`
	Rate         decimal.Decimal `json:"rate"`
	ChartVersion int             `json:"chartVersion"`
}

// Service resolves and maintains the rate chart history.
type Service struct {
	charts repository.RateChartRepository
	tx     repository.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a rate chart service.
func NewService(charts repository.RateChartRepository, tx repository.Transactor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{charts: charts, tx: tx, logger: logger.Named("svc.ratechart"), now: time.Now}
}

// Rate prices a measurement with the chart in force on date.
func (s *Service) Rate(ctx context.Context, milkType models.MilkType, fat, snf decimal.Decimal, date time.Time) (Quote, error) {
	if fat.IsNegative() || snf.IsNegative() {
		return Quote{}, fmt.Errorf("%w: fat and snf must not be negative", models.ErrInvalidInput)
	}
	ix, err := s.index(ctx, milkType)
	if err != nil {
		return Quote{}, err
	}
	chart, err := ix.Effective(date)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		MilkType:     milkType,
		Fat:          fat,
		Snf:          snf,
		Date:         models.DateOnly(date),
		Rate:         Price(chart, fat, snf),
		ChartVersion: chart.Version,
	}, nil
}

// Current returns the most recently saved chart, seeding the default on
// first use.
func (s *Service) Current(ctx context.Context, milkType models.MilkType) (models.RateChart, error) {
	versions, err := s.versions(ctx, milkType)
	if err != nil {
		return models.RateChart{}, err
	}
	return versions[len(versions)-1], nil
}

// History returns every version of the chart, newest first.
func (s *Service) History(ctx context.Context, milkType models.MilkType) ([]models.RateChart, error) {
	versions, err := s.versions(ctx, milkType)
	if err != nil {
		return nil, err
	}
	out := make([]models.RateChart, len(versions))
	for i, c := range versions {
		out[len(versions)-1-i] = c
	}
	return out, nil
}

// Save stores chart as a new version and archives the one it supersedes.
// A missing effectiveFrom means today.
func (s *Service) Save(ctx context.Context, chart models.RateChart) (models.RateChart, error) {
	now := s.now().UTC()
	if chart.EffectiveFrom.IsZero() {
		chart.EffectiveFrom = now
	}
	chart.EffectiveFrom = models.DateOnly(chart.EffectiveFrom)
	chart.UpdatedAt = now
	chart.ArchivedAt = nil
	if err := chart.Validate(); err != nil {
		return models.RateChart{}, err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		versions, err := s.charts.Versions(ctx, chart.MilkType)
		if err != nil {
			return err
		}
		chart.ID = uuid.NewString()
		chart.Version = 1
		if n := len(versions); n > 0 {
			chart.Version = versions[n-1].Version + 1
		}
		if err := s.charts.Insert(ctx, chart); err != nil {
			return err
		}
		for _, prev := range versions {
			if prev.ArchivedAt != nil {
				continue
			}
			if err := s.charts.Archive(ctx, prev.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.RateChart{}, fmt.Errorf("save %s rate chart: %w", chart.MilkType, err)
	}

	s.logger.Info("rate chart saved",
		zap.String("milk_type", string(chart.MilkType)),
		zap.Int("version", chart.Version),
		zap.String("effective_from", chart.EffectiveFrom.Format(models.DateLayout)),
	)
	return chart, nil
}

func (s *Service) index(ctx context.Context, milkType models.MilkType) (*Index, error) {
	versions, err := s.versions(ctx, milkType)
	if err != nil {
		return nil, err
	}
	return NewIndex(versions), nil
}

// versions loads the history oldest first, seeding the default chart when
// none exists yet.
func (s *Service) versions(ctx context.Context, milkType models.MilkType) ([]models.RateChart, error) {
	if !milkType.IsValid() {
		return nil, fmt.Errorf("%w: unknown milk type %q", models.ErrInvalidInput, milkType)
	}
	versions, err := s.charts.Versions(ctx, milkType)
	if err != nil {
		return nil, err
	}
	if len(versions) > 0 {
		return versions, nil
	}

	chart, _ := DefaultChart(milkType, s.now().UTC())
	chart.ID = uuid.NewString()
	chart.Version = 1
	err = s.charts.Insert(ctx, chart)
	switch {
	case err == nil:
		s.logger.Info("default rate chart seeded", zap.String("milk_type", string(milkType)))
		return []models.RateChart{chart}, nil
	case errors.Is(err, models.ErrConcurrencyConflict):
		// Another request seeded it first.
		return s.charts.Versions(ctx, milkType)
	default:
		return nil, fmt.Errorf("seed %s rate chart: %w", milkType, err)
	}
}
