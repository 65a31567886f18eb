package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusKind selects how a bonus rule turns milk totals into money.
type BonusKind string

const (
	BonusPercentage BonusKind = "Percentage"
	BonusFixed      BonusKind = "Fixed"
	BonusPerAmount  BonusKind = "PerAmount"
	BonusPerLiter   BonusKind = "PerLiter"
)

// BonusRuleConfig is a stored, named bonus rule.
type BonusRuleConfig struct {
	ID        string           `bson:"_id" json:"id"`
	Name      string           `bson:"name" json:"name"`
	Type      BonusKind        `bson:"type" json:"type"`
	Value     decimal.Decimal  `bson:"value" json:"value"`
	PerAmount *decimal.Decimal `bson:"perAmount,omitempty" json:"perAmount,omitempty"`
	Active    bool             `bson:"active" json:"active"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

// BonusPayment is an accepted bonus credited to a farmer.
type BonusPayment struct {
	ID         string          `bson:"_id" json:"id"`
	FarmerID   string          `bson:"farmerId" json:"farmerId"`
	Date       time.Time       `bson:"date" json:"date"`
	Amount     decimal.Decimal `bson:"amount" json:"amount"`
	Reason     string          `bson:"reason" json:"reason"`
	RuleID     string          `bson:"ruleId,omitempty" json:"ruleId,omitempty"`
	PeriodFrom time.Time       `bson:"periodFrom" json:"periodFrom"`
	PeriodTo   time.Time       `bson:"periodTo" json:"periodTo"`
	CreatedAt  time.Time       `bson:"createdAt" json:"createdAt"`
}

// BonusRow is one farmer's computed bonus for a period.
type BonusRow struct {
	FarmerID   string          `json:"farmerId"`
	FarmerCode string          `json:"farmerCode"`
	FarmerName string          `json:"farmerName"`
	Liters     decimal.Decimal `json:"liters"`
	Amount     decimal.Decimal `json:"amount"`
	Bonus      decimal.Decimal `json:"bonus"`
}
