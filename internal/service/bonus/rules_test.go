package bonus

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestCompute_RuleScenarios(t *testing.T) {
	tests := []struct {
		name   string
		spec   RuleSpec
		liters string
		amount string
		want   string
	}{
		{name: "percentage", spec: RuleSpec{Type: models.BonusPercentage, Value: d("2")}, liters: "250", amount: "10000", want: "200.00"},
		{name: "per amount", spec: RuleSpec{Type: models.BonusPerAmount, Value: d("50"), PerAmount: ptr("1000")}, liters: "90", amount: "3500", want: "150.00"},
		{name: "per amount below threshold", spec: RuleSpec{Type: models.BonusPerAmount, Value: d("50"), PerAmount: ptr("1000")}, liters: "20", amount: "999.99", want: "0.00"},
		{name: "per liter", spec: RuleSpec{Type: models.BonusPerLiter, Value: d("0.5")}, liters: "120", amount: "4000", want: "60.00"},
		{name: "fixed", spec: RuleSpec{Type: models.BonusFixed, Value: d("100")}, liters: "0", amount: "0", want: "100.00"},
		{name: "percentage rounds half up", spec: RuleSpec{Type: models.BonusPercentage, Value: d("2.5")}, liters: "10", amount: "333.30", want: "8.33"},
		{name: "per liter rounds half up", spec: RuleSpec{Type: models.BonusPerLiter, Value: d("0.333")}, liters: "10.5", amount: "400", want: "3.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.spec)
			require.NoError(t, err)

			rows := Compute(rule, []models.FarmerMilkTotals{{FarmerID: "f1", Liters: d(tt.liters), Amount: d(tt.amount)}})
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Bonus.StringFixed(2))
			assert.Equal(t, "f1", rows[0].FarmerID)
		})
	}
}

func TestParseRule_Validation(t *testing.T) {
	tests := []struct {
		name string
		spec RuleSpec
	}{
		{name: "zero value", spec: RuleSpec{Type: models.BonusFixed, Value: decimal.Zero}},
		{name: "negative value", spec: RuleSpec{Type: models.BonusPerLiter, Value: d("-1")}},
		{name: "percentage above 100", spec: RuleSpec{Type: models.BonusPercentage, Value: d("100.01")}},
		{name: "per amount without threshold", spec: RuleSpec{Type: models.BonusPerAmount, Value: d("50")}},
		{name: "per amount zero threshold", spec: RuleSpec{Type: models.BonusPerAmount, Value: d("50"), PerAmount: ptr("0")}},
		{name: "unknown type", spec: RuleSpec{Type: "Lottery", Value: d("5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule(tt.spec)
			assert.ErrorIs(t, err, models.ErrInvalidBonusRule)
		})
	}

	rule, err := ParseRule(RuleSpec{Type: models.BonusPercentage, Value: d("100")})
	require.NoError(t, err)
	assert.Equal(t, models.BonusPercentage, rule.Kind())
}

func TestRule_SpecRoundTrips(t *testing.T) {
	specs := []RuleSpec{
		{Type: models.BonusPercentage, Value: d("2")},
		{Type: models.BonusFixed, Value: d("100")},
		{Type: models.BonusPerAmount, Value: d("50"), PerAmount: ptr("1000")},
		{Type: models.BonusPerLiter, Value: d("0.5")},
	}
	for _, spec := range specs {
		rule, err := ParseRule(spec)
		require.NoError(t, err)
		assert.Equal(t, spec, rule.Spec())
	}

	// A threshold on a rule that has no use for it is dropped.
	rule, err := ParseRule(RuleSpec{Type: models.BonusFixed, Value: d("10"), PerAmount: ptr("100")})
	require.NoError(t, err)
	assert.Nil(t, rule.Spec().PerAmount)
}
