// Package deductions keeps farmer obligations as partially payable
// balances and settles them against accrued milk income.
package deductions

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

// reconcileAttempts bounds retries when a manual change races a reconcile.
const reconcileAttempts = 3

// AddInput opens a new obligation.
type AddInput struct {
	FarmerID string                   `json:"farmerId"`
	Date     time.Time                `json:"date"`
	Category models.DeductionCategory `json:"category"`
	Amount   decimal.Decimal          `json:"amount"`
	Note     string                   `json:"note"`
}

// Ledger manages deductions.
type Ledger struct {
	deductions repository.DeductionRepository
	milk       repository.MilkEntryRepository
	farmers    repository.FarmerRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewLedger wires a deduction ledger.
func NewLedger(deductions repository.DeductionRepository, milk repository.MilkEntryRepository, farmers repository.FarmerRepository, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		deductions: deductions,
		milk:       milk,
		farmers:    farmers,
		logger:     logger.Named("svc.deductions"),
		now:        time.Now,
	}
}

// Add reconciles a new deduction against income up to its date and stores
// it already settled, so a failed Add leaves nothing behind.
func (l *Ledger) Add(ctx context.Context, in AddInput) (models.Deduction, error) {
	if in.Date.IsZero() {
		return models.Deduction{}, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	}
	d, err := models.NewDeduction(uuid.NewString(), in.FarmerID, in.Date, in.Category, in.Amount, l.now().UTC())
	if err != nil {
		return models.Deduction{}, err
	}
	if _, err := l.farmers.FindByID(ctx, in.FarmerID); err != nil {
		return models.Deduction{}, err
	}
	d.Note = in.Note

	income, err := l.milk.Totals(ctx, d.FarmerID, time.Time{}, d.Date)
	if err != nil {
		return models.Deduction{}, fmt.Errorf("load milk income: %w", err)
	}
	d.Reconcile(income.Amount, l.now().UTC())

	if err := l.deductions.Insert(ctx, d); err != nil {
		return models.Deduction{}, err
	}
	l.logger.Info("deduction added",
		zap.String("deduction_id", d.ID),
		zap.String("farmer_id", d.FarmerID),
		zap.String("category", string(d.Category)),
		zap.String("amount", d.Amount.StringFixed(2)),
		zap.String("remaining", d.RemainingAmount.StringFixed(2)),
	)
	return d, nil
}

// Reconcile settles one deduction against income. Already reconciled
// deductions are returned unchanged.
func (l *Ledger) Reconcile(ctx context.Context, id string) (models.Deduction, error) {
	d, err := l.deductions.FindByID(ctx, id)
	if err != nil {
		return models.Deduction{}, err
	}
	return l.reconcile(ctx, d)
}

// ReconcilePending sweeps every deduction not yet reconciled and returns
// how many it settled.
func (l *Ledger) ReconcilePending(ctx context.Context) (int, error) {
	pending, err := l.deductions.ListUnreconciled(ctx)
	if err != nil {
		return 0, err
	}
	var done int
	for _, d := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		got, err := l.reconcile(ctx, d)
		if err != nil {
			return done, fmt.Errorf("reconcile deduction %s: %w", d.ID, err)
		}
		if got.AutoAdjusted {
			done++
		}
	}
	l.logger.Info("reconciliation sweep finished", zap.Int("pending", len(pending)), zap.Int("reconciled", done))
	return done, nil
}

// reconcile applies the one-time settlement. The write is conditioned on
// the record still being unreconciled with the balance read here, so racing
// callers subtract income once.
func (l *Ledger) reconcile(ctx context.Context, d models.Deduction) (models.Deduction, error) {
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		if d.AutoAdjusted {
			return d, nil
		}
		income, err := l.milk.Totals(ctx, d.FarmerID, time.Time{}, d.Date)
		if err != nil {
			return models.Deduction{}, fmt.Errorf("load milk income: %w", err)
		}

		expected := d.RemainingAmount
		next := d
		next.Reconcile(income.Amount, l.now().UTC())
		applied, err := l.deductions.MarkReconciled(ctx, next, expected)
		if err != nil {
			return models.Deduction{}, err
		}
		if applied {
			l.logger.Debug("deduction reconciled",
				zap.String("deduction_id", d.ID),
				zap.String("income", income.Amount.StringFixed(2)),
				zap.String("remaining", next.RemainingAmount.StringFixed(2)),
			)
			return next, nil
		}
		if d, err = l.deductions.FindByID(ctx, d.ID); err != nil {
			return models.Deduction{}, err
		}
	}
	if d.AutoAdjusted {
		return d, nil
	}
	return models.Deduction{}, fmt.Errorf("%w: deduction %s kept changing during reconciliation", models.ErrConcurrencyConflict, d.ID)
}

// Adjust settles amountToApply of the remaining balance.
func (l *Ledger) Adjust(ctx context.Context, id string, amountToApply decimal.Decimal) (models.Deduction, error) {
	return l.update(ctx, id, func(d *models.Deduction) error {
		return d.Adjust(amountToApply, l.now().UTC())
	})
}

// SetRemaining moves the remaining balance down to remaining. Raising it
// or going below zero is rejected.
func (l *Ledger) SetRemaining(ctx context.Context, id string, remaining decimal.Decimal) (models.Deduction, error) {
	return l.update(ctx, id, func(d *models.Deduction) error {
		if remaining.IsNegative() {
			return fmt.Errorf("%w: remainingAmount must not be negative", models.ErrInvalidAdjustment)
		}
		if remaining.Equal(d.RemainingAmount) {
			return errUnchanged
		}
		return d.Adjust(d.RemainingAmount.Sub(remaining), l.now().UTC())
	})
}

// Clear forces the balance to zero. Clearing a cleared deduction is a no-op.
func (l *Ledger) Clear(ctx context.Context, id string) (models.Deduction, error) {
	return l.update(ctx, id, func(d *models.Deduction) error {
		if d.Status == models.DeductionCleared && d.AutoAdjusted {
			return errUnchanged
		}
		d.Clear(l.now().UTC())
		return nil
	})
}

// List is a pure read.
func (l *Ledger) List(ctx context.Context, filter repository.DeductionFilter) ([]models.Deduction, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, filter.Status)
	}
	return l.deductions.List(ctx, filter)
}

var errUnchanged = errors.New("deduction unchanged")

// update applies a manual change conditioned on the balance that was read.
func (l *Ledger) update(ctx context.Context, id string, change func(d *models.Deduction) error) (models.Deduction, error) {
	d, err := l.deductions.FindByID(ctx, id)
	if err != nil {
		return models.Deduction{}, err
	}
	expected := d.RemainingAmount
	if err := change(&d); err != nil {
		if errors.Is(err, errUnchanged) {
			return d, nil
		}
		return models.Deduction{}, err
	}
	if err := l.deductions.UpdateBalance(ctx, d, expected); err != nil {
		return models.Deduction{}, err
	}
	l.logger.Info("deduction updated",
		zap.String("deduction_id", d.ID),
		zap.String("remaining", d.RemainingAmount.StringFixed(2)),
		zap.String("status", string(d.Status)),
	)
	return d, nil
}
