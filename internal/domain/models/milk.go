package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift is the collection round of the day.
type Shift string

const (
	ShiftMorning Shift = "Morning"
	ShiftEvening Shift = "Evening"
)

// IsValid checks the shift against the supported set.
func (s Shift) IsValid() bool {
	return s == ShiftMorning || s == ShiftEvening
}

// MilkEntry is one priced collection. Rate and TotalAmount are frozen when
// the entry is written and never follow later chart edits.
type MilkEntry struct {
	ID               string          `bson:"_id" json:"id"`
	FarmerID         string          `bson:"farmerId" json:"farmerId"`
	Date             time.Time       `bson:"date" json:"date"`
	Shift            Shift           `bson:"shift" json:"shift"`
	MilkType         MilkType        `bson:"milkType" json:"milkType"`
	Quantity         decimal.Decimal `bson:"quantity" json:"quantity"`
	Fat              decimal.Decimal `bson:"fat" json:"fat"`
	Snf              decimal.Decimal `bson:"snf" json:"snf"`
	Rate             decimal.Decimal `bson:"rate" json:"rate"`
	TotalAmount      decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	RateChartVersion int             `bson:"rateChartVersion" json:"rateChartVersion"`
	CreatedAt        time.Time       `bson:"createdAt" json:"createdAt"`
}

// FarmerMilkTotals aggregates a farmer's intake over a window.
type FarmerMilkTotals struct {
	FarmerID string          `bson:"_id" json:"farmerId"`
	Liters   decimal.Decimal `bson:"liters" json:"liters"`
	Amount   decimal.Decimal `bson:"amount" json:"amount"`
}

// Add folds one entry into the totals.
func (t FarmerMilkTotals) Add(e MilkEntry) FarmerMilkTotals {
	t.Liters = t.Liters.Add(e.Quantity)
	t.Amount = t.Amount.Add(e.TotalAmount)
	return t
}
