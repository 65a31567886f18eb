package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
)

const (
	billSheet = "Bills"
	// Columns A (bill month) and B (farmer id) identify a row.
	keyRange  = billSheet + "!A:B"
	billRange = billSheet + "!A:J"
)

// SheetRegister mirrors generated bills into a spreadsheet, one row per
// farmer and month. A regenerated bill overwrites its row.
type SheetRegister struct {
	repo   sheets.Repository
	logger *zap.Logger
	// mu keeps the read-then-write of a row from racing within this process.
	mu sync.Mutex
}

// NewSheetRegister builds a register on top of a sheets repository.
func NewSheetRegister(repo sheets.Repository, logger *zap.Logger) *SheetRegister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetRegister{repo: repo, logger: logger.Named("notify.sheets")}
}

// BillGenerated implements billing.Observer.
func (r *SheetRegister) BillGenerated(ctx context.Context, bill models.Bill, farmer models.Farmer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	month := bill.BillMonth.Format(models.MonthLayout)
	row := BillRow(bill, farmer)

	keys, err := r.repo.ReadRange(ctx, keyRange)
	if err != nil {
		return fmt.Errorf("failed to read bill register: %w", err)
	}
	for i, key := range keys {
		if len(key) >= 2 && fmt.Sprint(key[0]) == month && fmt.Sprint(key[1]) == bill.FarmerID {
			rowRange := fmt.Sprintf("%s!A%d:J%d", billSheet, i+1, i+1)
			if err := r.repo.UpdateRow(ctx, rowRange, row); err != nil {
				return fmt.Errorf("failed to update bill register: %w", err)
			}
			r.logger.Debug("bill register row updated", zap.String("bill_id", bill.ID), zap.String("range", rowRange))
			return nil
		}
	}

	if err := r.repo.AppendRow(ctx, billRange, row); err != nil {
		return fmt.Errorf("failed to append bill register: %w", err)
	}
	r.logger.Debug("bill register row appended", zap.String("bill_id", bill.ID))
	return nil
}

// BillRow lays a bill out over columns A to J.
func BillRow(bill models.Bill, farmer models.Farmer) []interface{} {
	return []interface{}{
		bill.BillMonth.Format(models.MonthLayout),
		bill.FarmerID,
		farmer.Code,
		farmer.Name,
		bill.TotalLiters.String(),
		bill.TotalMilkAmount.StringFixed(2),
		bill.TotalBonus.StringFixed(2),
		bill.TotalDeduction.StringFixed(2),
		bill.NetPayable.StringFixed(2),
		bill.ID,
	}
}
