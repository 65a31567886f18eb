package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

type farmerRepo struct{ s *Store }

func (r *farmerRepo) FindByID(ctx context.Context, id string) (models.Farmer, error) {
	var (
		farmer models.Farmer
		ok     bool
	)
	r.s.read(ctx, func(t *tables) { farmer, ok = t.farmers[id] })
	if !ok {
		return models.Farmer{}, fmt.Errorf("%w: %s", models.ErrFarmerNotFound, id)
	}
	return farmer, nil
}

func (r *farmerRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.Farmer, error) {
	out := make(map[string]models.Farmer, len(ids))
	r.s.read(ctx, func(t *tables) {
		for _, id := range ids {
			if f, ok := t.farmers[id]; ok {
				out[id] = f
			}
		}
	})
	return out, nil
}

func (r *farmerRepo) ListActive(ctx context.Context) ([]models.Farmer, error) {
	out := []models.Farmer{}
	r.s.read(ctx, func(t *tables) {
		for _, f := range t.farmers {
			if f.Active {
				out = append(out, f)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *farmerRepo) Save(ctx context.Context, farmer models.Farmer) error {
	return r.s.write(ctx, func(t *tables) error {
		t.farmers[farmer.ID] = farmer
		return nil
	})
}

type milkRepo struct{ s *Store }

func (r *milkRepo) Insert(ctx context.Context, entry models.MilkEntry) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, e := range t.milk {
			if e.FarmerID == entry.FarmerID && e.Date.Equal(entry.Date) && e.Shift == entry.Shift {
				return models.ErrDuplicateMilkEntry
			}
		}
		t.milk[entry.ID] = entry
		return nil
	})
}

func (r *milkRepo) List(ctx context.Context, farmerID string, from, to time.Time) ([]models.MilkEntry, error) {
	out := []models.MilkEntry{}
	r.s.read(ctx, func(t *tables) {
		for _, e := range t.milk {
			if (farmerID == "" || e.FarmerID == farmerID) && inRange(e.Date, from, to) {
				out = append(out, e)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Shift > out[j].Shift
	})
	return out, nil
}

func (r *milkRepo) Totals(ctx context.Context, farmerID string, from, to time.Time) (models.FarmerMilkTotals, error) {
	entries, err := r.List(ctx, farmerID, from, to)
	if err != nil {
		return models.FarmerMilkTotals{}, err
	}
	totals := models.FarmerMilkTotals{FarmerID: farmerID}
	for _, e := range entries {
		totals = totals.Add(e)
	}
	return totals, nil
}

func (r *milkRepo) TotalsByFarmer(ctx context.Context, from, to time.Time) ([]models.FarmerMilkTotals, error) {
	entries, err := r.List(ctx, "", from, to)
	if err != nil {
		return nil, err
	}
	byFarmer := map[string]models.FarmerMilkTotals{}
	for _, e := range entries {
		totals := byFarmer[e.FarmerID]
		totals.FarmerID = e.FarmerID
		byFarmer[e.FarmerID] = totals.Add(e)
	}
	out := make([]models.FarmerMilkTotals, 0, len(byFarmer))
	for _, totals := range byFarmer {
		out = append(out, totals)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FarmerID < out[j].FarmerID })
	return out, nil
}

type chartRepo struct{ s *Store }

func (r *chartRepo) Versions(ctx context.Context, milkType models.MilkType) ([]models.RateChart, error) {
	out := []models.RateChart{}
	r.s.read(ctx, func(t *tables) {
		for _, c := range t.charts {
			if c.MilkType == milkType {
				c.FatSlabs = slices.Clone(c.FatSlabs)
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *chartRepo) Insert(ctx context.Context, chart models.RateChart) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, c := range t.charts {
			if c.MilkType == chart.MilkType && c.Version == chart.Version {
				return fmt.Errorf("%w: %s chart version %d exists", models.ErrConcurrencyConflict, chart.MilkType, chart.Version)
			}
		}
		chart.FatSlabs = slices.Clone(chart.FatSlabs)
		t.charts[chart.ID] = chart
		return nil
	})
}

func (r *chartRepo) Archive(ctx context.Context, id string, at time.Time) error {
	return r.s.write(ctx, func(t *tables) error {
		c, ok := t.charts[id]
		if !ok {
			return models.ErrNotFound
		}
		if c.ArchivedAt == nil {
			c.ArchivedAt = &at
			t.charts[id] = c
		}
		return nil
	})
}

type deductionRepo struct{ s *Store }

func (r *deductionRepo) Insert(ctx context.Context, d models.Deduction) error {
	return r.s.write(ctx, func(t *tables) error {
		t.deductions[d.ID] = d
		return nil
	})
}

func (r *deductionRepo) FindByID(ctx context.Context, id string) (models.Deduction, error) {
	var (
		d  models.Deduction
		ok bool
	)
	r.s.read(ctx, func(t *tables) { d, ok = t.deductions[id] })
	if !ok {
		return models.Deduction{}, fmt.Errorf("%w: deduction %s", models.ErrNotFound, id)
	}
	return d, nil
}

func (r *deductionRepo) List(ctx context.Context, filter repository.DeductionFilter) ([]models.Deduction, error) {
	out := []models.Deduction{}
	r.s.read(ctx, func(t *tables) {
		for _, d := range t.deductions {
			if filter.FarmerID != "" && d.FarmerID != filter.FarmerID {
				continue
			}
			if filter.Status != "" && d.Status != filter.Status {
				continue
			}
			if inRange(d.Date, filter.From, filter.To) {
				out = append(out, d)
			}
		}
	})
	sortDeductions(out)
	return out, nil
}

func (r *deductionRepo) ListUnreconciled(ctx context.Context) ([]models.Deduction, error) {
	out := []models.Deduction{}
	r.s.read(ctx, func(t *tables) {
		for _, d := range t.deductions {
			if !d.AutoAdjusted {
				out = append(out, d)
			}
		}
	})
	sortDeductions(out)
	return out, nil
}

func (r *deductionRepo) MarkReconciled(ctx context.Context, d models.Deduction, expectedRemaining decimal.Decimal) (bool, error) {
	var applied bool
	err := r.s.write(ctx, func(t *tables) error {
		stored, ok := t.deductions[d.ID]
		if !ok {
			return fmt.Errorf("%w: deduction %s", models.ErrNotFound, d.ID)
		}
		if stored.AutoAdjusted || !stored.RemainingAmount.Equal(expectedRemaining) {
			return nil
		}
		t.deductions[d.ID] = d
		applied = true
		return nil
	})
	return applied, err
}

func (r *deductionRepo) UpdateBalance(ctx context.Context, d models.Deduction, expectedRemaining decimal.Decimal) error {
	return r.s.write(ctx, func(t *tables) error {
		stored, ok := t.deductions[d.ID]
		if !ok {
			return fmt.Errorf("%w: deduction %s", models.ErrNotFound, d.ID)
		}
		if !stored.RemainingAmount.Equal(expectedRemaining) {
			return models.ErrConcurrencyConflict
		}
		// A manual change never unsets a completed reconciliation.
		d.AutoAdjusted = d.AutoAdjusted || stored.AutoAdjusted
		t.deductions[d.ID] = d
		return nil
	})
}

func sortDeductions(out []models.Deduction) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) Insert(ctx context.Context, txn models.InventoryTransaction) error {
	return r.s.write(ctx, func(t *tables) error {
		t.inventory[txn.ID] = txn
		return nil
	})
}

func (r *inventoryRepo) FindByID(ctx context.Context, id string) (models.InventoryTransaction, error) {
	var (
		txn models.InventoryTransaction
		ok  bool
	)
	r.s.read(ctx, func(t *tables) { txn, ok = t.inventory[id] })
	if !ok {
		return models.InventoryTransaction{}, fmt.Errorf("%w: inventory transaction %s", models.ErrNotFound, id)
	}
	return txn, nil
}

func (r *inventoryRepo) Outstanding(ctx context.Context, farmerID string, asOf time.Time) ([]models.InventoryTransaction, error) {
	out := []models.InventoryTransaction{}
	r.s.read(ctx, func(t *tables) {
		for _, txn := range t.inventory {
			if txn.FarmerID == farmerID && txn.EligibleForBill(asOf) {
				out = append(out, txn)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *inventoryRepo) UpdatePayment(ctx context.Context, txn models.InventoryTransaction, expectedPaid decimal.Decimal) error {
	return r.s.write(ctx, func(t *tables) error {
		stored, ok := t.inventory[txn.ID]
		if !ok {
			return fmt.Errorf("%w: inventory transaction %s", models.ErrNotFound, txn.ID)
		}
		if stored.IsAdjustedInBill || !stored.PaidAmount.Equal(expectedPaid) {
			return models.ErrConcurrencyConflict
		}
		t.inventory[txn.ID] = txn
		return nil
	})
}

func (r *inventoryRepo) MarkAdjusted(ctx context.Context, ids []string, billID string) (int64, error) {
	var flagged int64
	err := r.s.write(ctx, func(t *tables) error {
		for _, id := range ids {
			txn, ok := t.inventory[id]
			if !ok || txn.IsAdjustedInBill {
				continue
			}
			txn.IsAdjustedInBill = true
			txn.BillID = billID
			t.inventory[id] = txn
			flagged++
		}
		return nil
	})
	return flagged, err
}

type bonusRepo struct{ s *Store }

func (r *bonusRepo) InsertRule(ctx context.Context, rule models.BonusRuleConfig) error {
	return r.s.write(ctx, func(t *tables) error {
		t.rules[rule.ID] = rule
		return nil
	})
}

func (r *bonusRepo) FindRule(ctx context.Context, id string) (models.BonusRuleConfig, error) {
	var (
		rule models.BonusRuleConfig
		ok   bool
	)
	r.s.read(ctx, func(t *tables) { rule, ok = t.rules[id] })
	if !ok {
		return models.BonusRuleConfig{}, fmt.Errorf("%w: bonus rule %s", models.ErrNotFound, id)
	}
	return rule, nil
}

func (r *bonusRepo) ListRules(ctx context.Context) ([]models.BonusRuleConfig, error) {
	out := []models.BonusRuleConfig{}
	r.s.read(ctx, func(t *tables) {
		for _, rule := range t.rules {
			out = append(out, rule)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *bonusRepo) InsertPayments(ctx context.Context, payments []models.BonusPayment) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, p := range payments {
			t.payments[p.ID] = p
		}
		return nil
	})
}

func (r *bonusRepo) ListPayments(ctx context.Context, filter repository.BonusPaymentFilter) ([]models.BonusPayment, error) {
	out := []models.BonusPayment{}
	r.s.read(ctx, func(t *tables) {
		for _, p := range t.payments {
			if filter.FarmerID != "" && p.FarmerID != filter.FarmerID {
				continue
			}
			if inRange(p.Date, filter.From, filter.To) {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type billRepo struct{ s *Store }

func (r *billRepo) FindByID(ctx context.Context, id string) (models.Bill, error) {
	var (
		bill models.Bill
		ok   bool
	)
	r.s.read(ctx, func(t *tables) { bill, ok = t.bills[id] })
	if !ok {
		return models.Bill{}, fmt.Errorf("%w: bill %s", models.ErrNotFound, id)
	}
	return bill, nil
}

func (r *billRepo) FindByFarmerMonth(ctx context.Context, farmerID string, month time.Time) (models.Bill, error) {
	var (
		bill  models.Bill
		found bool
	)
	r.s.read(ctx, func(t *tables) {
		for _, b := range t.bills {
			if b.FarmerID == farmerID && b.BillMonth.Equal(month) {
				bill, found = b, true
				return
			}
		}
	})
	if !found {
		return models.Bill{}, models.ErrNotFound
	}
	return bill, nil
}

func (r *billRepo) Replace(ctx context.Context, previousID string, bill models.Bill) error {
	return r.s.write(ctx, func(t *tables) error {
		if previousID != "" {
			prev, ok := t.bills[previousID]
			if !ok || prev.Status != models.BillPending {
				return models.ErrBillConflict
			}
			delete(t.bills, previousID)
		}
		for _, b := range t.bills {
			if b.FarmerID == bill.FarmerID && b.BillMonth.Equal(bill.BillMonth) {
				return models.ErrBillConflict
			}
		}
		bill.InventoryTransactionIDs = slices.Clone(bill.InventoryTransactionIDs)
		t.bills[bill.ID] = bill
		return nil
	})
}

func (r *billRepo) MarkPaid(ctx context.Context, id string, at time.Time) (models.Bill, error) {
	var bill models.Bill
	err := r.s.write(ctx, func(t *tables) error {
		b, ok := t.bills[id]
		if !ok {
			return fmt.Errorf("%w: bill %s", models.ErrNotFound, id)
		}
		if b.Status == models.BillPaid {
			return models.ErrBillAlreadyPaid
		}
		b.Status = models.BillPaid
		b.PaidAt = &at
		t.bills[id] = b
		bill = b
		return nil
	})
	return bill, err
}

func (r *billRepo) DeletePending(ctx context.Context, id string) error {
	return r.s.write(ctx, func(t *tables) error {
		b, ok := t.bills[id]
		if !ok {
			return fmt.Errorf("%w: bill %s", models.ErrNotFound, id)
		}
		if b.Status == models.BillPaid {
			return models.ErrBillAlreadyPaid
		}
		delete(t.bills, id)
		return nil
	})
}

func (r *billRepo) List(ctx context.Context, filter repository.BillFilter) ([]models.Bill, error) {
	out := []models.Bill{}
	r.s.read(ctx, func(t *tables) {
		for _, b := range t.bills {
			if filter.FarmerID != "" && b.FarmerID != filter.FarmerID {
				continue
			}
			if !filter.Month.IsZero() && !b.BillMonth.Equal(filter.Month) {
				continue
			}
			if filter.Status != "" && b.Status != filter.Status {
				continue
			}
			out = append(out, b)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BillMonth.Equal(out[j].BillMonth) {
			return out[i].BillMonth.After(out[j].BillMonth)
		}
		return out[i].FarmerID < out[j].FarmerID
	})
	return out, nil
}
