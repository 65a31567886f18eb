// Package ratechart prices milk from FAT and SNF measurements using
// versioned, tiered rate charts.
package ratechart

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// maxTableCells bounds the size of a tabulated chart.
const maxTableCells = 10000

var ten = decimal.NewFromInt(10)

// FatContribution walks the FAT ladder. Every slab below fat pays its full
// span, the slab holding fat pays up to fat, and higher slabs pay nothing.
// Spans are counted in tenths of a FAT point.
func FatContribution(slabs []models.FatSlab, fat decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, slab := range slabs {
		if !fat.GreaterThan(slab.From) {
			continue
		}
		top := decimal.Min(fat, slab.To)
		total = total.Add(top.Sub(slab.From).Mul(ten).Mul(slab.RatePerTenth))
	}
	return total
}

// Price returns the per-liter rate for the measurements, rounded to paise.
// Measurements outside the tabulated ranges still price through the formula.
func Price(chart models.RateChart, fat, snf decimal.Decimal) decimal.Decimal {
	rate := chart.BaseRate.
		Add(FatContribution(chart.FatSlabs, fat)).
		Add(snf.Mul(chart.SnfFactor))
	return models.Round2(rate)
}

// Index orders the versions of one milk type by effective date so the
// chart in force on a date can be found by binary search.
type Index struct {
	charts []models.RateChart
}

// NewIndex sorts a copy of charts by (effectiveFrom, version).
func NewIndex(charts []models.RateChart) *Index {
	sorted := make([]models.RateChart, len(charts))
	copy(sorted, charts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.Before(b.EffectiveFrom)
		}
		return a.Version < b.Version
	})
	return &Index{charts: sorted}
}

// Len returns the number of indexed versions.
func (ix *Index) Len() int { return len(ix.charts) }

// Effective returns the chart with the latest effectiveFrom on or before
// asOf. When several versions share that date the highest version wins.
func (ix *Index) Effective(asOf time.Time) (models.RateChart, error) {
	asOf = models.DateOnly(asOf)
	// First chart that starts after asOf; its predecessor is in force.
	i := sort.Search(len(ix.charts), func(i int) bool {
		return models.DateOnly(ix.charts[i].EffectiveFrom).After(asOf)
	})
	if i == 0 {
		return models.RateChart{}, fmt.Errorf("%w: %s", models.ErrNoRateChart, asOf.Format(models.DateLayout))
	}
	return ix.charts[i-1], nil
}

// RateTable is a chart tabulated over its FAT and SNF ranges. Rates[i][j]
// is the price for Fat[i] and Snf[j].
type RateTable struct {
	MilkType models.MilkType     `json:"milkType"`
	Version  int                 `json:"version"`
	Fat      []decimal.Decimal   `json:"fat"`
	Snf      []decimal.Decimal   `json:"snf"`
	Rates    [][]decimal.Decimal `json:"rates"`
}

// Table evaluates the chart on a grid stepping through fatRange and
// snfRange, both ends included.
func Table(chart models.RateChart, fatStep, snfStep decimal.Decimal) (RateTable, error) {
	if !fatStep.IsPositive() || !snfStep.IsPositive() {
		return RateTable{}, fmt.Errorf("%w: table steps must be positive", models.ErrInvalidInput)
	}
	fats := steps(chart.FatRange, fatStep)
	snfs := steps(chart.SnfRange, snfStep)
	if len(fats)*len(snfs) > maxTableCells {
		return RateTable{}, fmt.Errorf("%w: table would have %d cells, limit is %d", models.ErrInvalidInput, len(fats)*len(snfs), maxTableCells)
	}

	table := RateTable{
		MilkType: chart.MilkType,
		Version:  chart.Version,
		Fat:      fats,
		Snf:      snfs,
		Rates:    make([][]decimal.Decimal, len(fats)),
	}
	for i, fat := range fats {
		row := make([]decimal.Decimal, len(snfs))
		for j, snf := range snfs {
			row[j] = Price(chart, fat, snf)
		}
		table.Rates[i] = row
	}
	return table, nil
}

func steps(r models.Range, step decimal.Decimal) []decimal.Decimal {
	var out []decimal.Decimal
	for v := r.Min; !v.GreaterThan(r.Max); v = v.Add(step) {
		out = append(out, v)
		if len(out) > maxTableCells {
			break
		}
	}
	return out
}
