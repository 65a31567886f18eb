package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	require.NoError(t, repos.Farmers.Save(ctx, models.Farmer{ID: "f1", Code: "F001", Active: true}))

	boom := errors.New("boom")
	err := repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Farmers.Save(ctx, models.Farmer{ID: "f2", Code: "F002", Active: true}))
		require.NoError(t, repos.Bills.Replace(ctx, "", models.Bill{ID: "b1", FarmerID: "f1", BillMonth: day, Status: models.BillPending}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repos.Farmers.FindByID(ctx, "f2")
	assert.ErrorIs(t, err, models.ErrFarmerNotFound)
	_, err = repos.Bills.FindByID(ctx, "b1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = repos.Farmers.FindByID(ctx, "f1")
	assert.NoError(t, err)
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	err := repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		return repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
			return repos.Farmers.Save(ctx, models.Farmer{ID: "f1"})
		})
	})
	require.NoError(t, err)

	_, err = repos.Farmers.FindByID(ctx, "f1")
	assert.NoError(t, err)
}

func TestMilkEntries_DuplicateShift(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	entry := models.MilkEntry{ID: "m1", FarmerID: "f1", Date: day, Shift: models.ShiftMorning, Quantity: dec("10"), TotalAmount: dec("400")}
	require.NoError(t, repos.MilkEntries.Insert(ctx, entry))

	dup := entry
	dup.ID = "m2"
	assert.ErrorIs(t, repos.MilkEntries.Insert(ctx, dup), models.ErrDuplicateMilkEntry)

	evening := entry
	evening.ID, evening.Shift = "m3", models.ShiftEvening
	require.NoError(t, repos.MilkEntries.Insert(ctx, evening))

	totals, err := repos.MilkEntries.Totals(ctx, "f1", time.Time{}, day)
	require.NoError(t, err)
	assert.True(t, totals.Liters.Equal(dec("20")))
	assert.True(t, totals.Amount.Equal(dec("800")))

	list, err := repos.MilkEntries.List(ctx, "f1", day, day)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.ShiftMorning, list[0].Shift)
}

func TestDeductions_MarkReconciledOnce(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	d, err := models.NewDeduction("d1", "f1", day, models.DeductionAdvance, dec("500"), day)
	require.NoError(t, err)
	require.NoError(t, repos.Deductions.Insert(ctx, d))

	first := d
	first.Reconcile(dec("200"), day)
	ok, err := repos.Deductions.MarkReconciled(ctx, first, d.RemainingAmount)
	require.NoError(t, err)
	assert.True(t, ok)

	second := d
	second.Reconcile(dec("450"), day)
	ok, err = repos.Deductions.MarkReconciled(ctx, second, d.RemainingAmount)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repos.Deductions.FindByID(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.Equal(dec("300")))

	pending, err := repos.Deductions.ListUnreconciled(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeductions_UpdateBalanceIsOptimistic(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	d, err := models.NewDeduction("d1", "f1", day, models.DeductionFood, dec("100"), day)
	require.NoError(t, err)
	require.NoError(t, repos.Deductions.Insert(ctx, d))

	adjusted := d
	require.NoError(t, adjusted.Adjust(dec("40"), day))
	require.NoError(t, repos.Deductions.UpdateBalance(ctx, adjusted, d.RemainingAmount))

	stale := d
	require.NoError(t, stale.Adjust(dec("10"), day))
	assert.ErrorIs(t, repos.Deductions.UpdateBalance(ctx, stale, d.RemainingAmount), models.ErrConcurrencyConflict)

	list, err := repos.Deductions.List(ctx, repository.DeductionFilter{FarmerID: "f1", Status: models.DeductionPartial})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].RemainingAmount.Equal(dec("60")))
}

func TestInventory_MarkAdjustedSkipsConsumed(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, repos.Inventory.Insert(ctx, models.InventoryTransaction{
			ID: id, FarmerID: "f1", Date: day, PaymentMethod: models.PaymentBill,
			TotalAmount: dec("100"), RemainingAmount: dec("100"),
		}))
	}

	n, err := repos.Inventory.MarkAdjusted(ctx, []string{"t1"}, "b1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repos.Inventory.MarkAdjusted(ctx, []string{"t1", "t2"}, "b2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	t1, err := repos.Inventory.FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "b1", t1.BillID)

	outstanding, err := repos.Inventory.Outstanding(ctx, "f1", day)
	require.NoError(t, err)
	assert.Empty(t, outstanding)
}

func TestBills_ReplaceAndLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	month := models.MonthStart(day)
	first := models.Bill{ID: "b1", FarmerID: "f1", BillMonth: month, Status: models.BillPending}
	require.NoError(t, repos.Bills.Replace(ctx, "", first))

	// A second insert for the same farmer and month without naming the
	// previous bill is a conflict.
	assert.ErrorIs(t, repos.Bills.Replace(ctx, "", models.Bill{ID: "b2", FarmerID: "f1", BillMonth: month}), models.ErrBillConflict)

	require.NoError(t, repos.Bills.Replace(ctx, "b1", models.Bill{ID: "b2", FarmerID: "f1", BillMonth: month, Status: models.BillPending}))
	assert.ErrorIs(t, repos.Bills.Replace(ctx, "b1", models.Bill{ID: "b3", FarmerID: "f1", BillMonth: month}), models.ErrBillConflict)

	paid, err := repos.Bills.MarkPaid(ctx, "b2", day)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)

	_, err = repos.Bills.MarkPaid(ctx, "b2", day)
	assert.ErrorIs(t, err, models.ErrBillAlreadyPaid)
	assert.ErrorIs(t, repos.Bills.DeletePending(ctx, "b2"), models.ErrBillAlreadyPaid)
	assert.ErrorIs(t, repos.Bills.Replace(ctx, "b2", models.Bill{ID: "b4", FarmerID: "f1", BillMonth: month}), models.ErrBillConflict)
	assert.ErrorIs(t, repos.Bills.DeletePending(ctx, "missing"), models.ErrNotFound)

	bills, err := repos.Bills.List(ctx, repository.BillFilter{FarmerID: "f1"})
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "b2", bills[0].ID)
}

func TestWithTransaction_SerializesWriters(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	require.NoError(t, repos.Inventory.Insert(ctx, models.InventoryTransaction{
		ID: "t1", FarmerID: "f1", Date: day, PaymentMethod: models.PaymentBill,
		TotalAmount: dec("100"), RemainingAmount: dec("100"),
	}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		flagged int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repos.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
				outstanding, err := repos.Inventory.Outstanding(ctx, "f1", day)
				if err != nil || len(outstanding) == 0 {
					return err
				}
				n, err := repos.Inventory.MarkAdjusted(ctx, []string{outstanding[0].ID}, "b")
				mu.Lock()
				flagged += n
				mu.Unlock()
				return err
			})
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, flagged)
}
