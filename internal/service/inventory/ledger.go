// Package inventory tracks goods sold to farmers on credit until the credit
// is folded into a bill.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// SaleInput records goods handed to a farmer. PaidAmount is what was paid
// at the counter; cash sales are always paid in full.
type SaleInput struct {
	FarmerID      string               `json:"farmerId"`
	ItemID        string               `json:"itemId"`
	ItemName      string               `json:"itemName"`
	Date          time.Time            `json:"date"`
	Quantity      decimal.Decimal      `json:"quantity"`
	Rate          decimal.Decimal      `json:"rate"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	PaidAmount    decimal.Decimal      `json:"paidAmount"`
}

// Ledger manages inventory credit.
type Ledger struct {
	inventory repository.InventoryRepository
	farmers   repository.FarmerRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewLedger wires an inventory credit ledger.
func NewLedger(inventory repository.InventoryRepository, farmers repository.FarmerRepository, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{inventory: inventory, farmers: farmers, logger: logger.Named("svc.inventory"), now: time.Now}
}

// RecordSale stores a sale and the credit it leaves open.
func (l *Ledger) RecordSale(ctx context.Context, in SaleInput) (models.InventoryTransaction, error) {
	switch {
	case in.FarmerID == "" || in.ItemID == "":
		return models.InventoryTransaction{}, fmt.Errorf("%w: farmerId and itemId are required", models.ErrInvalidInput)
	case in.Date.IsZero():
		return models.InventoryTransaction{}, fmt.Errorf("%w: date is required", models.ErrInvalidInput)
	case !in.PaymentMethod.IsValid():
		return models.InventoryTransaction{}, fmt.Errorf("%w: unknown payment method %q", models.ErrInvalidInput, in.PaymentMethod)
	case !in.Quantity.IsPositive():
		return models.InventoryTransaction{}, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	case in.Rate.IsNegative():
		return models.InventoryTransaction{}, fmt.Errorf("%w: rate must not be negative", models.ErrInvalidInput)
	case in.PaidAmount.IsNegative():
		return models.InventoryTransaction{}, fmt.Errorf("%w: paidAmount must not be negative", models.ErrInvalidInput)
	}
	if _, err := l.farmers.FindByID(ctx, in.FarmerID); err != nil {
		return models.InventoryTransaction{}, err
	}

	total := models.Round2(in.Quantity.Mul(in.Rate))
	paid := models.Round2(in.PaidAmount)
	if in.PaymentMethod == models.PaymentCash {
		paid = total
	}
	if paid.GreaterThan(total) {
		return models.InventoryTransaction{}, fmt.Errorf("%w: paidAmount %s exceeds total %s", models.ErrInvalidInput, paid.StringFixed(2), total.StringFixed(2))
	}

	txn := models.InventoryTransaction{
		ID:              uuid.NewString(),
		FarmerID:        in.FarmerID,
		ItemID:          in.ItemID,
		ItemName:        in.ItemName,
		Date:            models.DateOnly(in.Date),
		Quantity:        in.Quantity,
		Rate:            in.Rate,
		TotalAmount:     total,
		PaymentMethod:   in.PaymentMethod,
		PaidAmount:      paid,
		RemainingAmount: total.Sub(paid),
		CreatedAt:       l.now().UTC(),
	}
	if err := l.inventory.Insert(ctx, txn); err != nil {
		return models.InventoryTransaction{}, err
	}
	l.logger.Info("inventory sale recorded",
		zap.String("transaction_id", txn.ID),
		zap.String("farmer_id", txn.FarmerID),
		zap.String("method", string(txn.PaymentMethod)),
		zap.String("remaining", txn.RemainingAmount.StringFixed(2)),
	)
	return txn, nil
}

// RecordPayment applies an installment. Credit already folded into a bill
// cannot be paid down any more.
func (l *Ledger) RecordPayment(ctx context.Context, id string, amount decimal.Decimal) (models.InventoryTransaction, error) {
	txn, err := l.inventory.FindByID(ctx, id)
	if err != nil {
		return models.InventoryTransaction{}, err
	}
	expected := txn.PaidAmount
	if err := txn.ApplyPayment(models.Round2(amount)); err != nil {
		return models.InventoryTransaction{}, err
	}
	if err := l.inventory.UpdatePayment(ctx, txn, expected); err != nil {
		return models.InventoryTransaction{}, err
	}
	return txn, nil
}

// OutstandingFor lists the credit a bill dated asOf would deduct.
func (l *Ledger) OutstandingFor(ctx context.Context, farmerID string, asOf time.Time) ([]models.InventoryTransaction, error) {
	if farmerID == "" {
		return nil, fmt.Errorf("%w: farmerId is required", models.ErrInvalidInput)
	}
	return l.inventory.Outstanding(ctx, farmerID, models.DateOnly(asOf))
}

// Consume marks the transactions as deducted in billID. It fails with
// models.ErrConcurrencyConflict unless every one of them was still
// unconsumed, so callers inside a transaction roll the bill back.
func (l *Ledger) Consume(ctx context.Context, txns []models.InventoryTransaction, billID string) error {
	if len(txns) == 0 {
		return nil
	}
	ids := make([]string, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
	}
	n, err := l.inventory.MarkAdjusted(ctx, ids, billID)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d inventory transactions were already billed", models.ErrConcurrencyConflict, int64(len(ids))-n, len(ids))
	}
	return nil
}

// SumRemaining totals the open credit of txns.
func SumRemaining(txns []models.InventoryTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.RemainingAmount)
	}
	return total
}
