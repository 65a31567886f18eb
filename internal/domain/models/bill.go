package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus is the payment state of a bill. Paid is terminal.
type BillStatus string

const (
	BillPending BillStatus = "Pending"
	BillPaid    BillStatus = "Paid"
)

// BillTotals holds the figures shared by a preview and a stored bill.
type BillTotals struct {
	TotalLiters        decimal.Decimal `bson:"totalLiters" json:"totalLiters"`
	TotalMilkAmount    decimal.Decimal `bson:"totalMilkAmount" json:"milkAmount"`
	TotalBonus         decimal.Decimal `bson:"totalBonus" json:"bonusAmount"`
	NormalDeduction    decimal.Decimal `bson:"normalDeduction" json:"normalDeduction"`
	InventoryDeduction decimal.Decimal `bson:"inventoryDeduction" json:"inventoryDeduction"`
	TotalDeduction     decimal.Decimal `bson:"totalDeduction" json:"deductionAmount"`
	NetPayable         decimal.Decimal `bson:"netPayable" json:"netAmount"`
}

// NewBillTotals derives the deduction total and net payable from their
// components so stored figures can never drift apart.
func NewBillTotals(liters, milk, bonus, normalDeduction, inventoryDeduction decimal.Decimal) BillTotals {
	milk, bonus = Round2(milk), Round2(bonus)
	normalDeduction, inventoryDeduction = Round2(normalDeduction), Round2(inventoryDeduction)
	total := normalDeduction.Add(inventoryDeduction)
	return BillTotals{
		TotalLiters:        liters,
		TotalMilkAmount:    milk,
		TotalBonus:         bonus,
		NormalDeduction:    normalDeduction,
		InventoryDeduction: inventoryDeduction,
		TotalDeduction:     total,
		NetPayable:         milk.Add(bonus).Sub(total),
	}
}

// IsZero reports a period with no intake and nothing to pay or recover.
func (t BillTotals) IsZero() bool {
	return t.TotalLiters.IsZero() && t.NetPayable.IsZero()
}

// BillPreview is the non-destructive result of a bill computation.
type BillPreview struct {
	FarmerID   string    `json:"farmerId"`
	PeriodFrom time.Time `json:"periodFrom"`
	PeriodTo   time.Time `json:"periodTo"`
	BillMonth  time.Time `json:"billMonth"`
	BillTotals

	InventoryTransactionIDs []string `json:"inventoryTransactionIds"`
}

// Bill is the stored payout for one farmer and month.
type Bill struct {
	ID         string     `bson:"_id" json:"id"`
	FarmerID   string     `bson:"farmerId" json:"farmerId"`
	PeriodFrom time.Time  `bson:"periodFrom" json:"periodFrom"`
	PeriodTo   time.Time  `bson:"periodTo" json:"periodTo"`
	BillMonth  time.Time  `bson:"billMonth" json:"billMonth"`
	Status     BillStatus `bson:"status" json:"status"`

	BillTotals `bson:",inline"`

	InventoryTransactionIDs []string   `bson:"inventoryTransactionIds" json:"inventoryTransactionIds"`
	GeneratedAt             time.Time  `bson:"generatedAt" json:"generatedAt"`
	PaidAt                  *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// BillView is a bill joined with the farmer register for display.
type BillView struct {
	Bill
	FarmerCode string `json:"farmerCode"`
	FarmerName string `json:"farmerName"`
}

// billMoney renders the money figures of BillTotals with exactly two
// decimals. Its fields shadow the promoted decimal fields when embedded
// next to them.
type billMoney struct {
	TotalMilkAmount    string `json:"milkAmount"`
	TotalBonus         string `json:"bonusAmount"`
	NormalDeduction    string `json:"normalDeduction"`
	InventoryDeduction string `json:"inventoryDeduction"`
	TotalDeduction     string `json:"deductionAmount"`
	NetPayable         string `json:"netAmount"`
}

func (t BillTotals) money() billMoney {
	return billMoney{
		TotalMilkAmount:    t.TotalMilkAmount.StringFixed(CurrencyPlaces),
		TotalBonus:         t.TotalBonus.StringFixed(CurrencyPlaces),
		NormalDeduction:    t.NormalDeduction.StringFixed(CurrencyPlaces),
		InventoryDeduction: t.InventoryDeduction.StringFixed(CurrencyPlaces),
		TotalDeduction:     t.TotalDeduction.StringFixed(CurrencyPlaces),
		NetPayable:         t.NetPayable.StringFixed(CurrencyPlaces),
	}
}

func (p BillPreview) MarshalJSON() ([]byte, error) {
	type plain BillPreview
	return json.Marshal(struct {
		plain
		billMoney
	}{plain(p), p.money()})
}

func (b Bill) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		billMoney
	}{plain(b), b.money()})
}

func (v BillView) MarshalJSON() ([]byte, error) {
	type plain Bill
	return json.Marshal(struct {
		plain
		billMoney
		FarmerCode string `json:"farmerCode"`
		FarmerName string `json:"farmerName"`
	}{plain(v.Bill), v.money(), v.FarmerCode, v.FarmerName})
}
