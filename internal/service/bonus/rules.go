// Package bonus computes per-farmer bonuses for a period and records the
// accepted ones as payments.
package bonus

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

var hundred = decimal.NewFromInt(100)

// RuleSpec is the wire and storage shape of a rule. PerAmount is only
// meaningful for PerAmount rules.
type RuleSpec struct {
	Type      models.BonusKind `json:"type"`
	Value     decimal.Decimal  `json:"value"`
	PerAmount *decimal.Decimal `json:"perAmount,omitempty"`
}

// Rule is a validated bonus rule. The concrete types are PercentageRule,
// FixedRule, PerAmountRule and PerLiterRule.
type Rule interface {
	Kind() models.BonusKind
	// Bonus returns the unrounded bonus for one farmer's totals.
	Bonus(totals models.FarmerMilkTotals) decimal.Decimal
	Spec() RuleSpec
}

// PercentageRule pays a share of milk revenue.
type PercentageRule struct{ Percent decimal.Decimal }

func (PercentageRule) Kind() models.BonusKind { return models.BonusPercentage }

func (r PercentageRule) Bonus(t models.FarmerMilkTotals) decimal.Decimal {
	return t.Amount.Mul(r.Percent).Div(hundred)
}

func (r PercentageRule) Spec() RuleSpec { return RuleSpec{Type: r.Kind(), Value: r.Percent} }

// FixedRule pays a flat amount.
type FixedRule struct{ Amount decimal.Decimal }

func (FixedRule) Kind() models.BonusKind { return models.BonusFixed }

func (r FixedRule) Bonus(models.FarmerMilkTotals) decimal.Decimal { return r.Amount }

func (r FixedRule) Spec() RuleSpec { return RuleSpec{Type: r.Kind(), Value: r.Amount} }

// PerAmountRule pays Value for every full Threshold of milk revenue.
type PerAmountRule struct {
	Value     decimal.Decimal
	Threshold decimal.Decimal
}

func (PerAmountRule) Kind() models.BonusKind { return models.BonusPerAmount }

func (r PerAmountRule) Bonus(t models.FarmerMilkTotals) decimal.Decimal {
	return t.Amount.Div(r.Threshold).Floor().Mul(r.Value)
}

func (r PerAmountRule) Spec() RuleSpec {
	threshold := r.Threshold
	return RuleSpec{Type: r.Kind(), Value: r.Value, PerAmount: &threshold}
}

// PerLiterRule pays a rate per liter collected.
type PerLiterRule struct{ PerLiter decimal.Decimal }

func (PerLiterRule) Kind() models.BonusKind { return models.BonusPerLiter }

func (r PerLiterRule) Bonus(t models.FarmerMilkTotals) decimal.Decimal {
	return t.Liters.Mul(r.PerLiter)
}

func (r PerLiterRule) Spec() RuleSpec { return RuleSpec{Type: r.Kind(), Value: r.PerLiter} }

// ParseRule validates spec and returns the matching rule.
func ParseRule(spec RuleSpec) (Rule, error) {
	if !spec.Value.IsPositive() {
		return nil, fmt.Errorf("%w: value must be positive", models.ErrInvalidBonusRule)
	}
	switch spec.Type {
	case models.BonusPercentage:
		if spec.Value.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: percentage must not exceed 100", models.ErrInvalidBonusRule)
		}
		return PercentageRule{Percent: spec.Value}, nil
	case models.BonusFixed:
		return FixedRule{Amount: spec.Value}, nil
	case models.BonusPerAmount:
		if spec.PerAmount == nil || !spec.PerAmount.IsPositive() {
			return nil, fmt.Errorf("%w: perAmount must be positive", models.ErrInvalidBonusRule)
		}
		return PerAmountRule{Value: spec.Value, Threshold: *spec.PerAmount}, nil
	case models.BonusPerLiter:
		return PerLiterRule{PerLiter: spec.Value}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", models.ErrInvalidBonusRule, spec.Type)
	}
}

// Compute applies the rule to every farmer's totals. Bonuses are rounded
// to two places.
func Compute(rule Rule, totals []models.FarmerMilkTotals) []models.BonusRow {
	rows := make([]models.BonusRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, models.BonusRow{
			FarmerID: t.FarmerID,
			Liters:   t.Liters,
			Amount:   models.Round2(t.Amount),
			Bonus:    models.Round2(rule.Bonus(t)),
		})
	}
	return rows
}
