package ratechart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// DefaultEffectiveFrom is the start date of the seeded charts, early enough
// to price any historical entry.
var DefaultEffectiveFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type defaultSpec struct {
	base, snf      string
	slabs          [][3]string
	fatMin, fatMax string
	snfMin, snfMax string
}

var defaults = map[models.MilkType]defaultSpec{
	models.MilkCow: {
		base: "10", snf: "2",
		slabs:  [][3]string{{"3.0", "3.5", "0.30"}, {"3.5", "4.5", "0.40"}, {"4.5", "10", "0.50"}},
		fatMin: "3.0", fatMax: "6.0", snfMin: "8.0", snfMax: "9.5",
	},
	models.MilkBuffalo: {
		base: "15", snf: "2.5",
		slabs:  [][3]string{{"5", "6", "0.50"}, {"6", "7", "0.60"}, {"7", "12", "0.70"}},
		fatMin: "5.0", fatMax: "10.0", snfMin: "8.5", snfMax: "10.0",
	},
	models.MilkMix: {
		base: "12", snf: "2.2",
		slabs:  [][3]string{{"3.5", "4.5", "0.35"}, {"4.5", "5.5", "0.45"}, {"5.5", "12", "0.55"}},
		fatMin: "3.5", fatMax: "8.0", snfMin: "8.0", snfMax: "9.5",
	},
}

// DefaultChart returns the system chart seeded the first time a milk type
// is priced. It carries no ID or version; Save assigns them.
func DefaultChart(milkType models.MilkType, now time.Time) (models.RateChart, bool) {
	def, ok := defaults[milkType]
	if !ok {
		return models.RateChart{}, false
	}
	slabs := make([]models.FatSlab, len(def.slabs))
	for i, s := range def.slabs {
		slabs[i] = models.FatSlab{
			From:         decimal.RequireFromString(s[0]),
			To:           decimal.RequireFromString(s[1]),
			RatePerTenth: decimal.RequireFromString(s[2]),
		}
	}
	return models.RateChart{
		MilkType:      milkType,
		BaseRate:      decimal.RequireFromString(def.base),
		SnfFactor:     decimal.RequireFromString(def.snf),
		FatSlabs:      slabs,
		FatRange:      models.Range{Min: decimal.RequireFromString(def.fatMin), Max: decimal.RequireFromString(def.fatMax)},
		SnfRange:      models.Range{Min: decimal.RequireFromString(def.snfMin), Max: decimal.RequireFromString(def.snfMax)},
		EffectiveFrom: DefaultEffectiveFrom,
		UpdatedAt:     now,
	}, true
}
