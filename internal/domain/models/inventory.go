package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod describes how an inventory sale is settled.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "Cash"
	PaymentBill        PaymentMethod = "Bill"
	PaymentInstallment PaymentMethod = "Installment"
)

// IsValid checks the method against the supported set.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentBill, PaymentInstallment:
		return true
	}
	return false
}

// InventoryTransaction is a sale of goods to a farmer.
type InventoryTransaction struct {
	ID               string          `bson:"_id" json:"id"`
	FarmerID         string          `bson:"farmerId" json:"farmerId"`
	ItemID           string          `bson:"itemId" json:"itemId"`
	ItemName         string          `bson:"itemName,omitempty" json:"itemName,omitempty"`
	Date             time.Time       `bson:"date" json:"date"`
	Quantity         decimal.Decimal `bson:"quantity" json:"quantity"`
	Rate             decimal.Decimal `bson:"rate" json:"rate"`
	TotalAmount      decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	PaymentMethod    PaymentMethod   `bson:"paymentMethod" json:"paymentMethod"`
	PaidAmount       decimal.Decimal `bson:"paidAmount" json:"paidAmount"`
	RemainingAmount  decimal.Decimal `bson:"remainingAmount" json:"remainingAmount"`
	IsAdjustedInBill bool            `bson:"isAdjustedInBill" json:"isAdjustedInBill"`
	BillID           string          `bson:"billId,omitempty" json:"billId,omitempty"`
	CreatedAt        time.Time       `bson:"createdAt" json:"createdAt"`
}

// EligibleForBill reports whether the sale still has credit to fold into
// a bill dated asOf.
func (t InventoryTransaction) EligibleForBill(asOf time.Time) bool {
	return t.PaymentMethod != PaymentCash &&
		t.RemainingAmount.IsPositive() &&
		!t.IsAdjustedInBill &&
		!DateOnly(t.Date).After(DateOnly(asOf))
}

// ApplyPayment records an installment against the outstanding credit.
func (t *InventoryTransaction) ApplyPayment(amount decimal.Decimal) error {
	if t.IsAdjustedInBill {
		return fmt.Errorf("%w: transaction was already deducted in bill %s", ErrInvalidState, t.BillID)
	}
	if t.PaymentMethod == PaymentCash {
		return fmt.Errorf("%w: cash sales carry no credit", ErrInvalidState)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment must be positive", ErrInvalidInput)
	}
	if amount.GreaterThan(t.RemainingAmount) {
		return fmt.Errorf("%w: payment %s exceeds remaining %s", ErrInvalidInput, amount.StringFixed(2), t.RemainingAmount.StringFixed(2))
	}
	t.PaidAmount = Round2(t.PaidAmount.Add(amount))
	t.RemainingAmount = Round2(t.TotalAmount.Sub(t.PaidAmount))
	return nil
}
