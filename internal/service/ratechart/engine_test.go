package ratechart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func cowChart(t *testing.T) models.RateChart {
	t.Helper()
	chart, ok := DefaultChart(models.MilkCow, time.Now())
	require.True(t, ok)
	return chart
}

func TestFatContribution(t *testing.T) {
	slabs := cowChart(t).FatSlabs
	tests := []struct {
		fat  string
		want string
	}{
		{fat: "2.5", want: "0"},
		{fat: "3.0", want: "0"},
		{fat: "3.2", want: "0.6"},
		{fat: "3.5", want: "1.5"},
		{fat: "4.2", want: "4.3"},
		{fat: "4.5", want: "5.5"},
		{fat: "5.0", want: "8"},
		{fat: "11", want: "33"},
	}
	for _, tt := range tests {
		t.Run(tt.fat, func(t *testing.T) {
			got := FatContribution(slabs, d(tt.fat))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPrice(t *testing.T) {
	chart := cowChart(t)
	rate := Price(chart, d("4.2"), d("8.5"))
	assert.Equal(t, "31.3", rate.String())

	// Identical inputs give identical rates.
	assert.True(t, rate.Equal(Price(chart, d("4.2"), d("8.5"))))
}

func TestPrice_MonotonicInFat(t *testing.T) {
	for _, mt := range models.MilkTypes {
		chart, _ := DefaultChart(mt, time.Now())
		prev := Price(chart, d("0"), d("8.5"))
		for fat := d("0.1"); fat.LessThanOrEqual(d("13")); fat = fat.Add(d("0.1")) {
			cur := Price(chart, fat, d("8.5"))
			require.True(t, prev.LessThanOrEqual(cur), "%s: price(%s)=%s below previous %s", mt, fat, cur, prev)
			prev = cur
		}
	}
}

func TestPrice_DeltaInsideSlabMatchesSlabRate(t *testing.T) {
	chart := cowChart(t)
	snf := d("8.5")

	delta := Price(chart, d("4.3"), snf).Sub(Price(chart, d("4.0"), snf))
	assert.True(t, delta.Equal(d("1.2")), "delta %s", delta)

	// Crossing 4.5 pays 0.1 at 0.40 then 0.1 at 0.50.
	delta = Price(chart, d("4.6"), snf).Sub(Price(chart, d("4.4"), snf))
	assert.True(t, delta.Equal(d("0.9")), "delta %s", delta)
}

func TestPrice_OutsideTabulatedRange(t *testing.T) {
	chart := cowChart(t)
	rate := Price(chart, d("1.0"), d("3.0"))
	assert.True(t, rate.Equal(d("16")), "rate %s", rate)
}

func TestIndex_Effective(t *testing.T) {
	charts := []models.RateChart{
		{ID: "v4", Version: 4, EffectiveFrom: date("2024-06-01")},
		{ID: "v2", Version: 2, EffectiveFrom: date("2024-03-01")},
		{ID: "v1", Version: 1, EffectiveFrom: date("2000-01-01")},
		{ID: "v3", Version: 3, EffectiveFrom: date("2024-03-01")},
	}
	ix := NewIndex(charts)
	assert.Equal(t, 4, ix.Len())

	tests := []struct {
		asOf string
		want string
	}{
		{asOf: "2000-01-01", want: "v1"},
		{asOf: "2024-02-29", want: "v1"},
		{asOf: "2024-03-01", want: "v3"},
		{asOf: "2024-05-31", want: "v3"},
		{asOf: "2024-06-01", want: "v4"},
		{asOf: "2030-01-01", want: "v4"},
	}
	for _, tt := range tests {
		t.Run(tt.asOf, func(t *testing.T) {
			got, err := ix.Effective(date(tt.asOf).Add(15 * time.Hour))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	_, err := ix.Effective(date("1999-12-31"))
	assert.ErrorIs(t, err, models.ErrNoRateChart)

	_, err = NewIndex(nil).Effective(date("2024-01-01"))
	assert.ErrorIs(t, err, models.ErrNoRateChart)
}

func TestTable(t *testing.T) {
	chart := cowChart(t)
	table, err := Table(chart, d("0.5"), d("0.5"))
	require.NoError(t, err)

	require.Len(t, table.Fat, 7)
	require.Len(t, table.Snf, 4)
	require.Len(t, table.Rates, 7)
	assert.True(t, table.Rates[0][0].Equal(d("26")), "rate %s", table.Rates[0][0])
	assert.True(t, table.Rates[6][3].Equal(Price(chart, d("6.0"), d("9.5"))))

	_, err = Table(chart, decimal.Zero, d("0.5"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Table(chart, d("0.001"), d("0.001"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDefaultCharts_AreValid(t *testing.T) {
	for _, mt := range models.MilkTypes {
		chart, ok := DefaultChart(mt, time.Now())
		require.True(t, ok)
		assert.NoError(t, chart.Validate(), mt)
	}
	_, ok := DefaultChart("camel", time.Now())
	assert.False(t, ok)
}
