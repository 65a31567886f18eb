// Package repository declares the storage contracts used by the billing
// services. Implementations live in the mongodb and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// Transactor runs a unit of work atomically. Repository calls made with
// the context handed to fn take part in the transaction; an error returned
// by fn rolls every write back. Calling WithTransaction with a context that
// is already transactional joins the outer transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FarmerRepository reads the farmer register.
type FarmerRepository interface {
	// FindByID returns models.ErrFarmerNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (models.Farmer, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Farmer, error)
	ListActive(ctx context.Context) ([]models.Farmer, error)
	Save(ctx context.Context, farmer models.Farmer) error
}

// MilkEntryRepository stores priced collections. A zero from or to leaves
// that side of a date range open.
type MilkEntryRepository interface {
	// Insert returns models.ErrDuplicateMilkEntry when the farmer already has
	// an entry for the same date and shift.
	Insert(ctx context.Context, entry models.MilkEntry) error
	List(ctx context.Context, farmerID string, from, to time.Time) ([]models.MilkEntry, error)
	Totals(ctx context.Context, farmerID string, from, to time.Time) (models.FarmerMilkTotals, error)
	TotalsByFarmer(ctx context.Context, from, to time.Time) ([]models.FarmerMilkTotals, error)
}

// RateChartRepository stores chart versions. Versions are never rewritten;
// only ArchivedAt is set once a newer version supersedes them.
type RateChartRepository interface {
	// Versions returns every version of the milk type, oldest first.
	Versions(ctx context.Context, milkType models.MilkType) ([]models.RateChart, error)
	// Insert returns models.ErrConcurrencyConflict if the version number is taken.
	Insert(ctx context.Context, chart models.RateChart) error
	Archive(ctx context.Context, id string, at time.Time) error
}

// DeductionFilter narrows deduction listings. Zero fields do not filter.
type DeductionFilter struct {
	FarmerID string
	Status   models.DeductionStatus
	From     time.Time
	To       time.Time
}

// DeductionRepository stores farmer obligations.
type DeductionRepository interface {
	Insert(ctx context.Context, deduction models.Deduction) error
	FindByID(ctx context.Context, id string) (models.Deduction, error)
	List(ctx context.Context, filter DeductionFilter) ([]models.Deduction, error)
	ListUnreconciled(ctx context.Context) ([]models.Deduction, error)
	// MarkReconciled stores the reconciled balance only while the stored
	// record still has AutoAdjusted unset and expectedRemaining left. It
	// reports whether it wrote.
	MarkReconciled(ctx context.Context, deduction models.Deduction, expectedRemaining decimal.Decimal) (bool, error)
	// UpdateBalance stores the balance if the stored remaining amount still
	// equals expectedRemaining, else models.ErrConcurrencyConflict.
	UpdateBalance(ctx context.Context, deduction models.Deduction, expectedRemaining decimal.Decimal) error
}

// InventoryRepository stores inventory sales.
type InventoryRepository interface {
	Insert(ctx context.Context, txn models.InventoryTransaction) error
	FindByID(ctx context.Context, id string) (models.InventoryTransaction, error)
	// Outstanding returns the non-cash, unconsumed sales with credit left,
	// dated on or before asOf, oldest first.
	Outstanding(ctx context.Context, farmerID string, asOf time.Time) ([]models.InventoryTransaction, error)
	// UpdatePayment stores the payment if the stored paid amount still equals
	// expectedPaid and the sale is unconsumed, else models.ErrConcurrencyConflict.
	UpdatePayment(ctx context.Context, txn models.InventoryTransaction, expectedPaid decimal.Decimal) error
	// MarkAdjusted flags the listed unconsumed sales as folded into billID and
	// returns how many it flagged.
	MarkAdjusted(ctx context.Context, ids []string, billID string) (int64, error)
}

// BonusPaymentFilter narrows bonus payment listings.
type BonusPaymentFilter struct {
	FarmerID string
	From     time.Time
	To       time.Time
}

// BonusRepository stores bonus rules and accepted bonus payments.
type BonusRepository interface {
	InsertRule(ctx context.Context, rule models.BonusRuleConfig) error
	FindRule(ctx context.Context, id string) (models.BonusRuleConfig, error)
	ListRules(ctx context.Context) ([]models.BonusRuleConfig, error)
	InsertPayments(ctx context.Context, payments []models.BonusPayment) error
	ListPayments(ctx context.Context, filter BonusPaymentFilter) ([]models.BonusPayment, error)
}

// BillFilter narrows bill listings. Zero fields do not filter.
type BillFilter struct {
	FarmerID string
	Month    time.Time
	Status   models.BillStatus
}

// BillRepository stores bills, at most one per farmer and month.
type BillRepository interface {
	FindByID(ctx context.Context, id string) (models.Bill, error)
	// FindByFarmerMonth returns models.ErrNotFound when no bill exists.
	FindByFarmerMonth(ctx context.Context, farmerID string, month time.Time) (models.Bill, error)
	// Replace removes the pending bill previousID (when not empty) and
	// inserts bill. If previousID is gone or no longer pending, or another
	// bill holds the farmer and month, it returns models.ErrBillConflict.
	Replace(ctx context.Context, previousID string, bill models.Bill) error
	// MarkPaid moves a pending bill to paid.
	MarkPaid(ctx context.Context, id string, at time.Time) (models.Bill, error)
	// DeletePending removes a pending bill; paid bills yield models.ErrBillAlreadyPaid.
	DeletePending(ctx context.Context, id string) error
	List(ctx context.Context, filter BillFilter) ([]models.Bill, error)
}

// Repositories bundles one storage backend.
type Repositories struct {
	Transactor  Transactor
	Farmers     FarmerRepository
	MilkEntries MilkEntryRepository
	RateCharts  RateChartRepository
	Deductions  DeductionRepository
	Inventory   InventoryRepository
	Bonuses     BonusRepository
	Bills       BillRepository
}
