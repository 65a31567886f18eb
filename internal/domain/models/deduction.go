package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeductionCategory classifies a farmer obligation.
type DeductionCategory string

const (
	DeductionAdvance DeductionCategory = "Advance"
	DeductionFood    DeductionCategory = "Food"
	DeductionMedical DeductionCategory = "Medical"
)

// IsValid checks the category against the supported set.
func (c DeductionCategory) IsValid() bool {
	switch c {
	case DeductionAdvance, DeductionFood, DeductionMedical:
		return true
	}
	return false
}

// DeductionStatus is derived from the remaining balance.
type DeductionStatus string

const (
	DeductionPending DeductionStatus = "Pending" // nothing settled
	DeductionPartial DeductionStatus = "Partial" // 0 < remaining < amount
	DeductionCleared DeductionStatus = "Cleared" // remaining = 0
)

// IsValid checks the status against the supported set.
func (s DeductionStatus) IsValid() bool {
	switch s {
	case DeductionPending, DeductionPartial, DeductionCleared:
		return true
	}
	return false
}

// DeductionStatusFor maps a remaining balance to its status.
func DeductionStatusFor(amount, remaining decimal.Decimal) DeductionStatus {
	switch {
	case remaining.Sign() <= 0:
		return DeductionCleared
	case remaining.LessThan(amount):
		return DeductionPartial
	default:
		return DeductionPending
	}
}

// Deduction is a partially payable farmer obligation.
type Deduction struct {
	ID              string            `bson:"_id" json:"id"`
	FarmerID        string            `bson:"farmerId" json:"farmerId"`
	Date            time.Time         `bson:"date" json:"date"`
	Category        DeductionCategory `bson:"category" json:"category"`
	Amount          decimal.Decimal   `bson:"amount" json:"amount"`
	RemainingAmount decimal.Decimal   `bson:"remainingAmount" json:"remainingAmount"`
	Status          DeductionStatus   `bson:"status" json:"status"`
	AutoAdjusted    bool              `bson:"autoAdjusted" json:"autoAdjusted"`
	Note            string            `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// NewDeduction opens an obligation with its full amount outstanding.
func NewDeduction(id, farmerID string, date time.Time, category DeductionCategory, amount decimal.Decimal, now time.Time) (Deduction, error) {
	if farmerID == "" {
		return Deduction{}, fmt.Errorf("%w: farmerId is required", ErrInvalidInput)
	}
	if !category.IsValid() {
		return Deduction{}, fmt.Errorf("%w: unknown deduction category %q", ErrInvalidInput, category)
	}
	if !amount.IsPositive() {
		return Deduction{}, fmt.Errorf("%w: deduction amount must be positive", ErrInvalidInput)
	}
	amount = Round2(amount)
	return Deduction{
		ID:              id,
		FarmerID:        farmerID,
		Date:            DateOnly(date),
		Category:        category,
		Amount:          amount,
		RemainingAmount: amount,
		Status:          DeductionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Reconcile settles the deduction against the farmer's cumulative milk
// income up to its date. It runs once; later calls are no-ops. The new
// balance is min(current remaining, max(amount - income, 0)): it never grows
// back, so a deduction already settled by hand stays settled.
func (d *Deduction) Reconcile(cumulativeIncome decimal.Decimal, now time.Time) bool {
	if d.AutoAdjusted {
		return false
	}
	remaining := d.Amount.Sub(cumulativeIncome)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if remaining.LessThan(d.RemainingAmount) {
		d.RemainingAmount = Round2(remaining)
	}
	d.AutoAdjusted = true
	d.refresh(now)
	return true
}

// Adjust applies a manual partial settlement.
func (d *Deduction) Adjust(amountToApply decimal.Decimal, now time.Time) error {
	if !amountToApply.IsPositive() {
		return fmt.Errorf("%w: amount to apply must be positive", ErrInvalidAdjustment)
	}
	if amountToApply.GreaterThan(d.RemainingAmount) {
		return fmt.Errorf("%w: amount to apply %s exceeds remaining %s", ErrInvalidAdjustment, amountToApply.StringFixed(2), d.RemainingAmount.StringFixed(2))
	}
	d.RemainingAmount = Round2(d.RemainingAmount.Sub(amountToApply))
	d.refresh(now)
	return nil
}

// Clear forces the balance to zero. Clearing twice is harmless.
func (d *Deduction) Clear(now time.Time) {
	d.RemainingAmount = decimal.Zero
	d.AutoAdjusted = true
	d.refresh(now)
}

func (d *Deduction) refresh(now time.Time) {
	d.Status = DeductionStatusFor(d.Amount, d.RemainingAmount)
	d.UpdatedAt = now
}
