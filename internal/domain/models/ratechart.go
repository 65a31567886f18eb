package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MilkType enumerates the milk categories priced separately.
type MilkType string

const (
	MilkCow     MilkType = "cow"
	MilkBuffalo MilkType = "buffalo"
	MilkMix     MilkType = "mix"
)

// MilkTypes lists every supported milk type.
var MilkTypes = []MilkType{MilkCow, MilkBuffalo, MilkMix}

// IsValid checks the milk type against the supported set.
func (m MilkType) IsValid() bool {
	switch m {
	case MilkCow, MilkBuffalo, MilkMix:
		return true
	}
	return false
}

// FatSlab is one [From, To) FAT band of the incentive ladder. RatePerTenth
// is paid for every 0.1 FAT point inside the band.
type FatSlab struct {
	From         decimal.Decimal `bson:"from" json:"from"`
	To           decimal.Decimal `bson:"to" json:"to"`
	RatePerTenth decimal.Decimal `bson:"ratePerTenthFat" json:"ratePerTenthFat"`
}

// Range is a min/max band used to tabulate a chart.
type Range struct {
	Min decimal.Decimal `bson:"min" json:"min"`
	Max decimal.Decimal `bson:"max" json:"max"`
}

// RateChart is one immutable version of a milk type's pricing formula.
type RateChart struct {
	ID            string          `bson:"_id" json:"id"`
	MilkType      MilkType        `bson:"milkType" json:"milkType"`
	Version       int             `bson:"version" json:"version"`
	BaseRate      decimal.Decimal `bson:"baseRate" json:"baseRate"`
	SnfFactor     decimal.Decimal `bson:"snfFactor" json:"snfFactor"`
	FatSlabs      []FatSlab       `bson:"fatSlabs" json:"fatSlabs"`
	FatRange      Range           `bson:"fatRange" json:"fatRange"`
	SnfRange      Range           `bson:"snfRange" json:"snfRange"`
	EffectiveFrom time.Time       `bson:"effectiveFrom" json:"effectiveFrom"`
	UpdatedAt     time.Time       `bson:"updatedAt" json:"updatedAt"`
	ArchivedAt    *time.Time      `bson:"archivedAt,omitempty" json:"archivedAt,omitempty"`
}

// Validate rejects charts that cannot be priced unambiguously.
func (c RateChart) Validate() error {
	if !c.MilkType.IsValid() {
		return fmt.Errorf("%w: unknown milk type %q", ErrInvalidRateChart, c.MilkType)
	}
	if c.BaseRate.IsNegative() {
		return fmt.Errorf("%w: baseRate must not be negative", ErrInvalidRateChart)
	}
	if c.SnfFactor.IsNegative() {
		return fmt.Errorf("%w: snfFactor must not be negative", ErrInvalidRateChart)
	}
	if c.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: effectiveFrom is required", ErrInvalidRateChart)
	}
	if len(c.FatSlabs) == 0 {
		return fmt.Errorf("%w: at least one FAT slab is required", ErrInvalidRateChart)
	}
	for i, slab := range c.FatSlabs {
		if slab.From.IsNegative() {
			return fmt.Errorf("%w: slab %d starts below zero", ErrInvalidRateChart, i)
		}
		if !slab.From.LessThan(slab.To) {
			return fmt.Errorf("%w: slab %d must have from < to", ErrInvalidRateChart, i)
		}
		if slab.RatePerTenth.IsNegative() {
			return fmt.Errorf("%w: slab %d rate must not be negative", ErrInvalidRateChart, i)
		}
		if i > 0 && slab.From.LessThan(c.FatSlabs[i-1].To) {
			return fmt.Errorf("%w: slab %d overlaps or is out of order with slab %d", ErrInvalidRateChart, i, i-1)
		}
	}
	if err := c.FatRange.validate("fatRange"); err != nil {
		return err
	}
	return c.SnfRange.validate("snfRange")
}

func (r Range) validate(name string) error {
	if r.Min.IsNegative() {
		return fmt.Errorf("%w: %s min must not be negative", ErrInvalidRateChart, name)
	}
	if !r.Min.LessThan(r.Max) {
		return fmt.Errorf("%w: %s min must be below max", ErrInvalidRateChart, name)
	}
	return nil
}
