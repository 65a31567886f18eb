// Package billing turns a farmer's priced milk, deductions, inventory
// credit and bonuses for a month into one bill and manages its lifecycle.
package billing

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
	"github.com/mamadbah2/dairy/internal/service/inventory"
)

const defaultWorkers = 4

// Observer is told about every committed bill. Errors are logged and never
// undo the bill.
type Observer interface {
	BillGenerated(ctx context.Context, bill models.Bill, farmer models.Farmer) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithObservers registers post-commit observers.
func WithObservers(observers ...Observer) Option {
	return func(g *Generator) { g.observers = append(g.observers, observers...) }
}

// WithWorkers bounds the parallelism of GenerateAll.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// Generator computes and stores bills.
type Generator struct {
	repos     repository.Repositories
	inventory *inventory.Ledger
	locker    Locker
	observers []Observer
	workers   int
	logger    *zap.Logger
	now       func() time.Time
}

// NewGenerator wires a bill generator. A nil locker falls back to an
// in-process KeyedMutex.
func NewGenerator(repos repository.Repositories, ledger *inventory.Ledger, locker Locker, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	g := &Generator{
		repos:     repos,
		inventory: ledger,
		locker:    locker,
		workers:   defaultWorkers,
		logger:    logger.Named("svc.billing"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type computation struct {
	farmer  models.Farmer
	preview models.BillPreview
	credit  []models.InventoryTransaction
}

// compute runs the bill algorithm without writing anything.
func (g *Generator) compute(ctx context.Context, farmerID string, period models.Period) (computation, error) {
	farmer, err := g.repos.Farmers.FindByID(ctx, farmerID)
	if err != nil {
		return computation{}, err
	}

	milk, err := g.repos.MilkEntries.Totals(ctx, farmerID, period.From, period.To)
	if err != nil {
		return computation{}, fmt.Errorf("load milk totals: %w", err)
	}

	deductions, err := g.repos.Deductions.List(ctx, repository.DeductionFilter{FarmerID: farmerID, From: period.From, To: period.To})
	if err != nil {
		return computation{}, fmt.Errorf("load deductions: %w", err)
	}
	normal := decimal.Zero
	for _, d := range deductions {
		normal = normal.Add(d.Amount)
	}

	credit, err := g.inventory.OutstandingFor(ctx, farmerID, period.To)
	if err != nil {
		return computation{}, fmt.Errorf("load inventory credit: %w", err)
	}

	payments, err := g.repos.Bonuses.ListPayments(ctx, repository.BonusPaymentFilter{FarmerID: farmerID, From: period.From, To: period.To})
	if err != nil {
		return computation{}, fmt.Errorf("load bonus payments: %w", err)
	}
	bonus := decimal.Zero
	for _, p := range payments {
		bonus = bonus.Add(p.Amount)
	}

	ids := make([]string, len(credit))
	for i, txn := range credit {
		ids[i] = txn.ID
	}
	return computation{
		farmer: farmer,
		preview: models.BillPreview{
			FarmerID:                farmerID,
			PeriodFrom:              period.From,
			PeriodTo:                period.To,
			BillMonth:               period.BillMonth(),
			BillTotals:              models.NewBillTotals(milk.Liters, milk.Amount, bonus, normal, inventory.SumRemaining(credit)),
			InventoryTransactionIDs: ids,
		},
		credit: credit,
	}, nil
}

// Preview computes the bill generate would store, without side effects.
func (g *Generator) Preview(ctx context.Context, farmerID string, from, to time.Time) (models.BillPreview, error) {
	if farmerID == "" {
		return models.BillPreview{}, fmt.Errorf("%w: farmerId is required", models.ErrInvalidInput)
	}
	period, err := models.NewBillingPeriod(from, to)
	if err != nil {
		return models.BillPreview{}, err
	}
	c, err := g.compute(ctx, farmerID, period)
	if err != nil {
		return models.BillPreview{}, err
	}
	return c.preview, nil
}

// Generate stores the farmer's bill for the month of from, replacing a
// pending one. Paid bills are never replaced. The replace and the
// consumption of inventory credit commit together.
func (g *Generator) Generate(ctx context.Context, farmerID string, from, to time.Time) (models.Bill, error) {
	if farmerID == "" {
		return models.Bill{}, fmt.Errorf("%w: farmerId is required", models.ErrInvalidInput)
	}
	period, err := models.NewBillingPeriod(from, to)
	if err != nil {
		return models.Bill{}, err
	}

	unlock, err := g.locker.Lock(ctx, lockKey(farmerID, period.BillMonth()))
	if err != nil {
		return models.Bill{}, fmt.Errorf("lock bill %s: %w", farmerID, err)
	}
	defer unlock()

	var (
		bill   models.Bill
		farmer models.Farmer
	)
	err = g.repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		previousID, err := g.replaceable(ctx, farmerID, period.BillMonth())
		if err != nil {
			return err
		}

		c, err := g.compute(ctx, farmerID, period)
		if err != nil {
			return err
		}
		farmer = c.farmer
		bill = models.Bill{
			ID:                      uuid.NewString(),
			FarmerID:                farmerID,
			PeriodFrom:              period.From,
			PeriodTo:                period.To,
			BillMonth:               period.BillMonth(),
			Status:                  models.BillPending,
			BillTotals:              c.preview.BillTotals,
			InventoryTransactionIDs: c.preview.InventoryTransactionIDs,
			GeneratedAt:             g.now().UTC(),
		}
		if err := g.repos.Bills.Replace(ctx, previousID, bill); err != nil {
			return err
		}
		return g.inventory.Consume(ctx, c.credit, bill.ID)
	})
	if err != nil {
		return models.Bill{}, err
	}

	g.logger.Info("bill generated",
		zap.String("bill_id", bill.ID),
		zap.String("farmer_id", farmerID),
		zap.String("bill_month", bill.BillMonth.Format(models.MonthLayout)),
		zap.String("net_payable", bill.NetPayable.StringFixed(2)),
		zap.Int("inventory_consumed", len(bill.InventoryTransactionIDs)),
	)
	g.notify(ctx, bill, farmer)
	return bill, nil
}

// replaceable returns the id of the pending bill to replace, or "" when
// none exists.
func (g *Generator) replaceable(ctx context.Context, farmerID string, month time.Time) (string, error) {
	existing, err := g.repos.Bills.FindByFarmerMonth(ctx, farmerID, month)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load existing bill: %w", err)
	case existing.Status == models.BillPaid:
		return "", fmt.Errorf("%w: %s for %s", models.ErrBillAlreadyPaid, existing.ID, month.Format(models.MonthLayout))
	default:
		return existing.ID, nil
	}
}

func (g *Generator) notify(ctx context.Context, bill models.Bill, farmer models.Farmer) {
	for _, o := range g.observers {
		if err := o.BillGenerated(ctx, bill, farmer); err != nil {
			g.logger.Warn("bill observer failed",
				zap.String("bill_id", bill.ID),
				zap.String("observer", fmt.Sprintf("%T", o)),
				zap.Error(err),
			)
		}
	}
}

// MarkPaid moves a pending bill to paid.
func (g *Generator) MarkPaid(ctx context.Context, id string) (models.Bill, error) {
	bill, err := g.repos.Bills.MarkPaid(ctx, id, g.now().UTC())
	if err != nil {
		return models.Bill{}, err
	}
	g.logger.Info("bill paid", zap.String("bill_id", id), zap.String("farmer_id", bill.FarmerID))
	return bill, nil
}

// Delete removes a pending bill. Inventory credit it consumed stays
// consumed.
func (g *Generator) Delete(ctx context.Context, id string) error {
	if err := g.repos.Bills.DeletePending(ctx, id); err != nil {
		return err
	}
	g.logger.Info("bill deleted", zap.String("bill_id", id))
	return nil
}

// Get returns one bill joined with its farmer.
func (g *Generator) Get(ctx context.Context, id string) (models.BillView, error) {
	bill, err := g.repos.Bills.FindByID(ctx, id)
	if err != nil {
		return models.BillView{}, err
	}
	views, err := g.join(ctx, []models.Bill{bill})
	if err != nil {
		return models.BillView{}, err
	}
	return views[0], nil
}

// List returns bills joined with their farmers, newest month first.
func (g *Generator) List(ctx context.Context, filter repository.BillFilter) ([]models.BillView, error) {
	bills, err := g.repos.Bills.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return g.join(ctx, bills)
}

func (g *Generator) join(ctx context.Context, bills []models.Bill) ([]models.BillView, error) {
	ids := make([]string, 0, len(bills))
	seen := map[string]bool{}
	for _, b := range bills {
		if !seen[b.FarmerID] {
			seen[b.FarmerID] = true
			ids = append(ids, b.FarmerID)
		}
	}
	farmers, err := g.repos.Farmers.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load farmers: %w", err)
	}
	views := make([]models.BillView, len(bills))
	for i, b := range bills {
		f := farmers[b.FarmerID]
		views[i] = models.BillView{Bill: b, FarmerCode: f.Code, FarmerName: f.Name}
	}
	return views, nil
}

func lockKey(farmerID string, month time.Time) string {
	return "bill:" + farmerID + ":" + month.Format(models.MonthLayout)
}
