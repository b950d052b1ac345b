package enhancer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"schedex/internal/domain"
)

// DefaultBusID is the identifier of the bus synthesized when a schedule has
// loads but no buses.
const DefaultBusID = "BUS-MAIN"

// EnhancementResult lists what the enhancer changed and what it could not fix.
type EnhancementResult struct {
	Corrections []domain.Correction
	Warnings    []string
}

func (r *EnhancementResult) correct(c domain.Correction) {
	r.Corrections = append(r.Corrections, c)
}

func (r *EnhancementResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Enhancer repairs and completes an aggregate in place.
type Enhancer struct {
	defaultVoltageV float64
}

// New creates an Enhancer. defaultVoltageV is used for a synthesized bus when
// no load carries a voltage.
func New(defaultVoltageV float64) *Enhancer {
	return &Enhancer{defaultVoltageV: defaultVoltageV}
}

// Enhance applies, in order: ID repair, relationship backfill, cable
// synthesis, bus registry checks, name normalization and recalculation of
// derived fields.
func (e *Enhancer) Enhance(ctx context.Context, agg *domain.Aggregate, results []*domain.ExtractionResult) (*EnhancementResult, error) {
	if agg.Frozen() {
		return nil, domain.ErrAggregateFrozen
	}
	res := &EnhancementResult{Corrections: []domain.Correction{}, Warnings: []string{}}

	for _, r := range results {
		if r == nil || r.Success {
			continue
		}
		if r.TotalRows > 0 {
			res.warnf("sheet %q produced no entities; relationships may be incomplete", r.SheetName)
		}
	}

	e.repairIDs(agg, res)
	e.backfill(agg, res)
	e.synthesizeCables(agg, res)
	e.checkRegistry(agg, res)
	e.normalizeNames(agg, res)
	e.recalculate(agg, res)

	log.Printf("enhancer.Enhancer.Enhance: %d corrections, %d warnings", len(res.Corrections), len(res.Warnings))
	return res, nil
}

// sequencer hands out fresh identifiers such as L001 that collide with
// nothing already in use.
type sequencer struct {
	prefix string
	next   int
	used   map[string]bool
}

func newSequencer(prefix string, used map[string]bool) *sequencer {
	return &sequencer{prefix: prefix, next: 1, used: used}
}

func (s *sequencer) id() string {
	for {
		id := fmt.Sprintf("%s%03d", s.prefix, s.next)
		s.next++
		if !s.used[id] {
			s.used[id] = true
			return id
		}
	}
}

func (e *Enhancer) sequencers(agg *domain.Aggregate) map[domain.EntityType]*sequencer {
	used := map[domain.EntityType]map[string]bool{
		domain.EntityLoad:        {},
		domain.EntityCable:       {},
		domain.EntityBus:         {},
		domain.EntityTransformer: {},
	}
	for _, l := range agg.Loads {
		used[domain.EntityLoad][l.ID] = true
	}
	for _, c := range agg.Cables {
		used[domain.EntityCable][c.ID] = true
	}
	for _, b := range agg.Buses {
		used[domain.EntityBus][b.ID] = true
	}
	for _, t := range agg.Transformers {
		used[domain.EntityTransformer][t.ID] = true
	}
	seqs := make(map[domain.EntityType]*sequencer, len(used))
	for et, ids := range used {
		seqs[et] = newSequencer(domain.IDPrefixes[et], ids)
	}
	return seqs
}

// repairIDs replaces empty or malformed identifiers and rewrites every
// reference to the old value in the same pass.
func (e *Enhancer) repairIDs(agg *domain.Aggregate, res *EnhancementResult) {
	seqs := e.sequencers(agg)
	renamed := map[domain.EntityType]map[string]string{
		domain.EntityLoad:        {},
		domain.EntityCable:       {},
		domain.EntityBus:         {},
		domain.EntityTransformer: {},
	}

	fix := func(et domain.EntityType, id *string) {
		if domain.ValidID(et, *id) {
			return
		}
		old := *id
		if prev, seen := renamed[et][old]; seen && old != "" {
			*id = prev
		} else {
			*id = seqs[et].id()
			if old != "" {
				renamed[et][old] = *id
			}
		}
		res.correct(domain.Correction{
			Kind:       domain.CorrectionIDRepair,
			EntityType: et,
			EntityID:   *id,
			Field:      "id",
			OldValue:   old,
			NewValue:   *id,
			Message:    fmt.Sprintf("%s id %q replaced with %q", et, old, *id),
		})
	}

	for _, l := range agg.Loads {
		fix(domain.EntityLoad, &l.ID)
	}
	for _, c := range agg.Cables {
		fix(domain.EntityCable, &c.ID)
	}
	for _, b := range agg.Buses {
		fix(domain.EntityBus, &b.ID)
	}
	for _, t := range agg.Transformers {
		fix(domain.EntityTransformer, &t.ID)
	}

	rewrite := func(et domain.EntityType, ownerType domain.EntityType, ownerID, field string, ref *string) {
		to, ok := renamed[et][*ref]
		if !ok {
			return
		}
		res.correct(domain.Correction{
			Kind:       domain.CorrectionReference,
			EntityType: ownerType,
			EntityID:   ownerID,
			Field:      field,
			OldValue:   *ref,
			NewValue:   to,
			Message:    fmt.Sprintf("%s reference %q rewritten to %q", field, *ref, to),
		})
		*ref = to
	}

	for _, l := range agg.Loads {
		rewrite(domain.EntityBus, domain.EntityLoad, l.ID, "source_bus", &l.SourceBus)
		rewrite(domain.EntityCable, domain.EntityLoad, l.ID, "cable_id", &l.CableID)
	}
	for _, c := range agg.Cables {
		rewrite(domain.EntityBus, domain.EntityCable, c.ID, "from_bus", &c.FromBus)
		rewrite(domain.EntityLoad, domain.EntityCable, c.ID, "to_load", &c.ToLoad)
	}
	for _, b := range agg.Buses {
		if _, isBus := renamed[domain.EntityBus][b.FedFrom]; isBus {
			rewrite(domain.EntityBus, domain.EntityBus, b.ID, "fed_from", &b.FedFrom)
		} else {
			rewrite(domain.EntityTransformer, domain.EntityBus, b.ID, "fed_from", &b.FedFrom)
		}
	}
	for _, t := range agg.Transformers {
		rewrite(domain.EntityBus, domain.EntityTransformer, t.ID, "secondary_bus", &t.SecondaryBus)
	}
}

// backfill resolves references written as names and gives every load a bus.
func (e *Enhancer) backfill(agg *domain.Aggregate, res *EnhancementResult) {
	busByName := make(map[string]string)
	busIDs := make(map[string]bool)
	for _, b := range agg.Buses {
		busIDs[b.ID] = true
		if key := nameKey(b.Name); key != "" {
			if _, dup := busByName[key]; !dup {
				busByName[key] = b.ID
			}
		}
	}
	loadByName := make(map[string]string)
	loadIDs := make(map[string]bool)
	for _, l := range agg.Loads {
		loadIDs[l.ID] = true
		if key := nameKey(l.Name); key != "" {
			if _, dup := loadByName[key]; !dup {
				loadByName[key] = l.ID
			}
		}
	}

	resolve := func(ids map[string]bool, byName map[string]string, ownerType domain.EntityType, ownerID, field string, ref *string) {
		if *ref == "" || ids[*ref] {
			return
		}
		id, ok := byName[nameKey(*ref)]
		if !ok {
			return
		}
		res.correct(domain.Correction{
			Kind:       domain.CorrectionReference,
			EntityType: ownerType,
			EntityID:   ownerID,
			Field:      field,
			OldValue:   *ref,
			NewValue:   id,
			Message:    fmt.Sprintf("%s %q resolved by name to %q", field, *ref, id),
		})
		*ref = id
	}

	for _, l := range agg.Loads {
		resolve(busIDs, busByName, domain.EntityLoad, l.ID, "source_bus", &l.SourceBus)
	}
	for _, c := range agg.Cables {
		resolve(busIDs, busByName, domain.EntityCable, c.ID, "from_bus", &c.FromBus)
		resolve(loadIDs, loadByName, domain.EntityCable, c.ID, "to_load", &c.ToLoad)
	}
	for _, b := range agg.Buses {
		resolve(busIDs, busByName, domain.EntityBus, b.ID, "fed_from", &b.FedFrom)
	}
	for _, t := range agg.Transformers {
		resolve(busIDs, busByName, domain.EntityTransformer, t.ID, "secondary_bus", &t.SecondaryBus)
	}

	if len(agg.Loads) == 0 {
		return
	}

	if len(agg.Buses) == 0 {
		bus := &domain.BusRecord{
			ID:          DefaultBusID,
			Name:        "Main Bus",
			VoltageV:    e.commonVoltage(agg.Loads),
			Phases:      3,
			Synthesized: true,
		}
		agg.Buses = append(agg.Buses, bus)
		res.correct(domain.Correction{
			Kind:       domain.CorrectionSynthesized,
			EntityType: domain.EntityBus,
			EntityID:   bus.ID,
			Message:    fmt.Sprintf("no bus found; synthesized %s at %.0f V", bus.ID, bus.VoltageV),
		})
		for _, l := range agg.Loads {
			assignBus(l, bus.ID, res)
		}
		return
	}

	first := agg.Buses[0].ID
	for _, l := range agg.Loads {
		if l.SourceBus == "" {
			assignBus(l, first, res)
		}
	}
}

func assignBus(l *domain.LoadRecord, busID string, res *EnhancementResult) {
	if l.SourceBus == busID {
		return
	}
	res.correct(domain.Correction{
		Kind:       domain.CorrectionBackfill,
		EntityType: domain.EntityLoad,
		EntityID:   l.ID,
		Field:      "source_bus",
		OldValue:   l.SourceBus,
		NewValue:   busID,
		Message:    fmt.Sprintf("load %s assigned to bus %s", l.ID, busID),
	})
	l.SourceBus = busID
}

// commonVoltage returns the most frequent positive load voltage. Ties go to
// the value seen first.
func (e *Enhancer) commonVoltage(loads []*domain.LoadRecord) float64 {
	counts := make(map[float64]int)
	best, bestCount := e.defaultVoltageV, 0
	for _, l := range loads {
		if l.VoltageV <= 0 {
			continue
		}
		counts[l.VoltageV]++
		if counts[l.VoltageV] > bestCount {
			best, bestCount = l.VoltageV, counts[l.VoltageV]
		}
	}
	return best
}

// synthesizeCables adds a cable for each load that has a cable length but no
// cable of its own.
func (e *Enhancer) synthesizeCables(agg *domain.Aggregate, res *EnhancementResult) {
	cableIDs := make(map[string]bool, len(agg.Cables))
	feeds := make(map[string]bool, len(agg.Cables))
	for _, c := range agg.Cables {
		cableIDs[c.ID] = true
		if c.ToLoad != "" {
			feeds[c.ToLoad] = true
		}
	}
	seq := e.sequencers(agg)[domain.EntityCable]

	for _, l := range agg.Loads {
		if feeds[l.ID] || (l.CableID != "" && cableIDs[l.CableID]) || l.CableLengthM <= 0 {
			continue
		}
		cores := 4
		if l.Phases == 1 {
			cores = 3
		}
		install := l.InstallationMethod
		if install == "" {
			install = domain.InstallUnspecified
		}
		id := l.CableID
		if id == "" || cableIDs[id] || !domain.ValidID(domain.EntityCable, id) {
			id = seq.id()
		}
		seq.used[id] = true
		c := &domain.CableRecord{
			ID:                 id,
			FromBus:            l.SourceBus,
			ToLoad:             l.ID,
			SizeMM2:            EstimateCableSize(l.PowerKW),
			Cores:              cores,
			LengthM:            l.CableLengthM,
			Material:           domain.MaterialCopper,
			InstallationMethod: install,
			CableType:          domain.CableUnspecified,
			VoltageRatingV:     1000,
			Source:             l.Source,
			Synthesized:        true,
		}
		agg.Cables = append(agg.Cables, c)
		cableIDs[c.ID] = true
		feeds[l.ID] = true
		l.CableID = c.ID
		res.correct(domain.Correction{
			Kind:       domain.CorrectionSynthesized,
			EntityType: domain.EntityCable,
			EntityID:   c.ID,
			Message:    fmt.Sprintf("cable %s synthesized for load %s at %g mm2", c.ID, l.ID, c.SizeMM2),
		})
	}
}

// checkRegistry warns about references to buses that do not exist.
func (e *Enhancer) checkRegistry(agg *domain.Aggregate, res *EnhancementResult) {
	valid := make(map[string]bool, len(agg.Buses))
	for _, b := range agg.Buses {
		valid[b.ID] = true
	}
	for _, l := range agg.Loads {
		if l.SourceBus != "" && !valid[l.SourceBus] {
			res.warnf("load %s references unknown bus %q", l.ID, l.SourceBus)
		}
	}
	for _, c := range agg.Cables {
		if c.FromBus != "" && !valid[c.FromBus] {
			res.warnf("cable %s starts at unknown bus %q", c.ID, c.FromBus)
		}
	}
}

func (e *Enhancer) normalizeNames(agg *domain.Aggregate, res *EnhancementResult) {
	apply := func(et domain.EntityType, id string, name *string) {
		if *name == "" || *name == id {
			return
		}
		n := NormalizeName(*name)
		if n == *name {
			return
		}
		res.correct(domain.Correction{
			Kind:       domain.CorrectionNaming,
			EntityType: et,
			EntityID:   id,
			Field:      "name",
			OldValue:   *name,
			NewValue:   n,
			Message:    fmt.Sprintf("name normalized to %q", n),
		})
		*name = n
	}
	for _, l := range agg.Loads {
		apply(domain.EntityLoad, l.ID, &l.Name)
	}
	for _, b := range agg.Buses {
		apply(domain.EntityBus, b.ID, &b.Name)
	}
	for _, t := range agg.Transformers {
		apply(domain.EntityTransformer, t.ID, &t.Name)
	}
}

// recalculate refreshes links and figures that depend on identifiers.
func (e *Enhancer) recalculate(agg *domain.Aggregate, res *EnhancementResult) {
	loads := make(map[string]*domain.LoadRecord, len(agg.Loads))
	for _, l := range agg.Loads {
		if _, dup := loads[l.ID]; !dup {
			loads[l.ID] = l
		}
	}
	cables := make(map[string]*domain.CableRecord, len(agg.Cables))
	for _, c := range agg.Cables {
		if _, dup := cables[c.ID]; !dup {
			cables[c.ID] = c
		}
	}

	for _, c := range agg.Cables {
		l, ok := loads[c.ToLoad]
		if !ok {
			continue
		}
		if l.CableID == "" {
			l.CableID = c.ID
			res.correct(domain.Correction{
				Kind:       domain.CorrectionRecalculated,
				EntityType: domain.EntityLoad,
				EntityID:   l.ID,
				Field:      "cable_id",
				NewValue:   c.ID,
				Message:    fmt.Sprintf("load %s linked to cable %s", l.ID, c.ID),
			})
		}
	}
	for _, l := range agg.Loads {
		c, ok := cables[l.CableID]
		if !ok {
			continue
		}
		if c.ToLoad == "" {
			c.ToLoad = l.ID
			res.correct(domain.Correction{
				Kind:       domain.CorrectionRecalculated,
				EntityType: domain.EntityCable,
				EntityID:   c.ID,
				Field:      "to_load",
				NewValue:   l.ID,
				Message:    fmt.Sprintf("cable %s linked to load %s", c.ID, l.ID),
			})
		}
		if c.FromBus == "" && l.SourceBus != "" {
			c.FromBus = l.SourceBus
		}
		if c.ToLoad == l.ID && l.DesignCurrentA != nil {
			ib := *l.DesignCurrentA
			c.DesignCurrentA = &ib
		}
	}

	RecalculateBuses(agg)
}

// RecalculateBuses refreshes each bus's connected load and load count from
// the loads currently in agg. It must run again after deduplication.
func RecalculateBuses(agg *domain.Aggregate) {
	buses := make(map[string]*domain.BusRecord, len(agg.Buses))
	for _, b := range agg.Buses {
		b.ConnectedLoadKW = 0
		b.LoadCount = 0
		if _, dup := buses[b.ID]; !dup {
			buses[b.ID] = b
		}
	}
	for _, l := range agg.Loads {
		if b, ok := buses[l.SourceBus]; ok {
			b.ConnectedLoadKW += l.PowerKW
			b.LoadCount++
		}
	}
}

func nameKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
