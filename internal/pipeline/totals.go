package pipeline

import (
	"schedex/internal/domain"
	"schedex/internal/validator/schedule"
)

// ComputeTotals derives run totals from the final aggregate.
func ComputeTotals(agg *domain.Aggregate) domain.Totals {
	t := domain.Totals{
		TotalLoads:        len(agg.Loads),
		TotalCables:       len(agg.Cables),
		TotalBuses:        len(agg.Buses),
		TotalTransformers: len(agg.Transformers),
		PowerByPriority:   make(map[domain.Priority]float64),
		PowerByLoadType:   make(map[domain.LoadType]float64),
	}
	for _, l := range agg.Loads {
		t.TotalPowerKW += l.PowerKW
		t.PowerByPriority[l.Priority] += l.PowerKW
		t.PowerByLoadType[l.LoadType] += l.PowerKW
	}
	t.TotalApparentKVA = schedule.ApparentPowerKVA(agg.Loads)
	for _, c := range agg.Cables {
		if c.LengthM > 0 {
			t.TotalCableLengthM += c.LengthM
		}
	}
	for _, tx := range agg.Transformers {
		t.TransformerKVA += tx.RatingKVA
	}
	return t
}
