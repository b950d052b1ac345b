// Package dedup collapses entity collections to the first occurrence of each
// identifier.
package dedup

import (
	"log"

	"schedex/internal/domain"
)

// Pair records a dropped entity and the one that was kept in its place.
type Pair struct {
	EntityType domain.EntityType `json:"entity_type"`
	ID         string            `json:"id"`
	Kept       domain.Source     `json:"kept"`
	Dropped    domain.Source     `json:"dropped"`
}

// Result summarizes one deduplication pass.
type Result struct {
	Removed    map[domain.EntityType]int `json:"removed"`
	Duplicates []Pair                    `json:"duplicates"`
}

// Total returns the number of entities removed across all collections.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Removed {
		n += c
	}
	return n
}

// Deduplicate keeps the first entity seen for each identifier and preserves
// insertion order. Entities with an empty identifier are always kept.
func Deduplicate(agg *domain.Aggregate) (*Result, error) {
	if agg.Frozen() {
		return nil, domain.ErrAggregateFrozen
	}
	res := &Result{Removed: make(map[domain.EntityType]int), Duplicates: []Pair{}}

	agg.Loads = collapse(res, domain.EntityLoad, agg.Loads, func(l *domain.LoadRecord) (string, domain.Source) {
		return l.ID, l.Source
	})
	agg.Cables = collapse(res, domain.EntityCable, agg.Cables, func(c *domain.CableRecord) (string, domain.Source) {
		return c.ID, c.Source
	})
	agg.Buses = collapse(res, domain.EntityBus, agg.Buses, func(b *domain.BusRecord) (string, domain.Source) {
		return b.ID, b.Source
	})
	agg.Transformers = collapse(res, domain.EntityTransformer, agg.Transformers, func(t *domain.TransformerRecord) (string, domain.Source) {
		return t.ID, t.Source
	})

	if n := res.Total(); n > 0 {
		log.Printf("dedup.Deduplicate: removed %d duplicate entities", n)
	}
	return res, nil
}

func collapse[T any](res *Result, et domain.EntityType, items []*T, key func(*T) (string, domain.Source)) []*T {
	seen := make(map[string]domain.Source, len(items))
	instances := make(map[*T]bool, len(items))
	kept := make([]*T, 0, len(items))
	for _, it := range items {
		if it == nil || instances[it] {
			continue
		}
		instances[it] = true
		id, src := key(it)
		if id == "" {
			kept = append(kept, it)
			continue
		}
		if first, dup := seen[id]; dup {
			res.Removed[et]++
			res.Duplicates = append(res.Duplicates, Pair{EntityType: et, ID: id, Kept: first, Dropped: src})
			continue
		}
		seen[id] = src
		kept = append(kept, it)
	}
	return kept
}
