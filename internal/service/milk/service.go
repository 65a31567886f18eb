// Package milk records collections, pricing each one when it is written.
package milk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/ratechart"
)

var maxPercent = decimal.NewFromInt(15)

// Pricer quotes a per-liter rate.
type Pricer interface {
	Rate(ctx context.Context, milkType models.MilkType, fat, snf decimal.Decimal, date time.Time) (ratechart.Quote, error)
}

// RecordInput is one measured collection.
type RecordInput struct {
	FarmerID string          `json:"farmerId"`
	Date     time.Time       `json:"date"`
	Shift    models.Shift    `json:"shift"`
	MilkType models.MilkType `json:"milkType"`
	Quantity decimal.Decimal `json:"quantity"`
	Fat      decimal.Decimal `json:"fat"`
	Snf      decimal.Decimal `json:"snf"`
}

func (in RecordInput) validate() error {
	switch {
	case in.FarmerID == "":
		return fmt.Errorf("%w: farmerId is required", models.ErrInvalidInput)
	case in.Date.IsZero():
		return fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	case !in.Shift.IsValid():
		return fmt.Errorf("%w: shift must be Morning or Evening", models.ErrInvalidInput)
	case !in.MilkType.IsValid():
		return fmt.Errorf("%w: unknown milk type %q", models.ErrInvalidInput, in.MilkType)
	case !in.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	}
	if err := percent("fat", in.Fat); err != nil {
		return err
	}
	return percent("snf", in.Snf)
}

func percent(name string, v decimal.Decimal) error {
	if !v.IsPositive() || v.GreaterThan(maxPercent) {
		return fmt.Errorf("%w: %s must be in (0, 15]", models.ErrInvalidInput, name)
	}
	return nil
}

// Service records milk intake.
type Service struct {
	farmers repository.FarmerRepository
	entries repository.MilkEntryRepository
	pricer  Pricer
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a milk intake service.
func NewService(farmers repository.FarmerRepository, entries repository.MilkEntryRepository, pricer Pricer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{farmers: farmers, entries: entries, pricer: pricer, logger: logger.Named("svc.milk"), now: time.Now}
}

// Record prices the collection with the chart in force on its date and
// stores it. The rate is frozen on the entry.
func (s *Service) Record(ctx context.Context, in RecordInput) (models.MilkEntry, error) {
	if err := in.validate(); err != nil {
		return models.MilkEntry{}, err
	}
	if _, err := s.farmers.FindByID(ctx, in.FarmerID); err != nil {
		return models.MilkEntry{}, err
	}

	date := models.DateOnly(in.Date)
	quote, err := s.pricer.Rate(ctx, in.MilkType, in.Fat, in.Snf, date)
	if err != nil {
		return models.MilkEntry{}, err
	}

	entry := models.MilkEntry{
		ID:               uuid.NewString(),
		FarmerID:         in.FarmerID,
		Date:             date,
		Shift:            in.Shift,
		MilkType:         in.MilkType,
		Quantity:         in.Quantity,
		Fat:              in.Fat,
		Snf:              in.Snf,
		Rate:             quote.Rate,
		TotalAmount:      models.Round2(in.Quantity.Mul(quote.Rate)),
		RateChartVersion: quote.ChartVersion,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		return models.MilkEntry{}, err
	}

	s.logger.Debug("milk entry recorded",
		zap.String("farmer_id", entry.FarmerID),
		zap.String("date", date.Format(models.DateLayout)),
		zap.String("shift", string(entry.Shift)),
		zap.String("total", entry.TotalAmount.StringFixed(2)),
	)
	return entry, nil
}

// List returns a farmer's entries in the inclusive date range. An empty
// farmerID lists every farmer.
func (s *Service) List(ctx context.Context, farmerID string, from, to time.Time) ([]models.MilkEntry, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", models.ErrInvalidInput)
	}
	return s.entries.List(ctx, farmerID, from, to)
}
