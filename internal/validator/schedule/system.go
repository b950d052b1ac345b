package schedule

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"schedex/internal/domain"
)

// CapacityUtilization is the share of transformer capacity above which the
// capacity advisory fires.
const CapacityUtilization = 0.8

// SystemValidators returns the rules that look across collections.
func SystemValidators() []*ruleValidator {
	return []*ruleValidator{
		{
			ruleKey: "system.duplicate_id", ruleName: "System: Unique Identifiers",
			ruleType: domain.RuleTypeSystem, severity: domain.SeverityError,
			validate: duplicateIDs,
		},
		{
			ruleKey: "system.dangling_reference", ruleName: "System: Resolvable References",
			ruleType: domain.RuleTypeSystem, severity: domain.SeverityWarning,
			validate: danglingReferences,
		},
		{
			ruleKey: "system.capacity", ruleName: "System: Transformer Capacity",
			ruleType: domain.RuleTypeSystem, severity: domain.SeverityInfo,
			validate: capacityAdvisory,
		},
		{
			ruleKey: "system.voltage_heterogeneity", ruleName: "System: Voltage Consistency",
			ruleType: domain.RuleTypeSystem, severity: domain.SeverityInfo,
			validate: voltageHeterogeneity,
		},
	}
}

func duplicateIDs(a *domain.Aggregate) []ValidationResult {
	collections := []struct {
		et  domain.EntityType
		ids []string
	}{
		{domain.EntityLoad, loadIDs(a)},
		{domain.EntityCable, cableIDs(a)},
		{domain.EntityBus, busIDs(a)},
		{domain.EntityTransformer, transformerIDs(a)},
	}

	var results []ValidationResult
	for _, c := range collections {
		if len(c.ids) == 0 {
			continue
		}
		counts := make(map[string]int, len(c.ids))
		var order []string
		for _, id := range c.ids {
			if id == "" {
				continue
			}
			if counts[id] == 0 {
				order = append(order, id)
			}
			counts[id]++
		}
		dup := false
		for _, id := range order {
			if counts[id] > 1 {
				dup = true
				results = append(results, ValidationResult{
					Passed: false, EntityType: c.et, EntityID: id,
					FieldPath:     path(c.et, id, "id"),
					ExpectedValue: "1 occurrence", ActualValue: fmt.Sprintf("%d occurrences", counts[id]),
					Message:       fmt.Sprintf("System: Unique Identifiers: %s id %q appears %d times", c.et, id, counts[id]),
				})
			}
		}
		if !dup {
			results = append(results, ValidationResult{
				Passed: true, EntityType: c.et, FieldPath: string(c.et) + "s",
				ExpectedValue: "unique ids", ActualValue: "unique ids",
				Message: fmt.Sprintf("System: Unique Identifiers: %s ids are unique", c.et),
			})
		}
	}
	return results
}

func danglingReferences(a *domain.Aggregate) []ValidationResult {
	buses := toSet(busIDs(a))
	loads := toSet(loadIDs(a))
	cables := toSet(cableIDs(a))
	transformers := toSet(transformerIDs(a))

	var results []ValidationResult
	ref := func(et domain.EntityType, id, field, target string, targetType string, ok bool) {
		if target == "" {
			return
		}
		results = append(results, check(ok, et, id, field, "existing "+targetType, target,
			"System: Resolvable References", fmt.Sprintf("references unknown %s %q", targetType, target)))
	}

	for _, l := range a.Loads {
		ref(domain.EntityLoad, l.ID, "source_bus", l.SourceBus, "bus", buses[l.SourceBus])
		ref(domain.EntityLoad, l.ID, "cable_id", l.CableID, "cable", cables[l.CableID])
	}
	for _, c := range a.Cables {
		ref(domain.EntityCable, c.ID, "from_bus", c.FromBus, "bus", buses[c.FromBus])
		ref(domain.EntityCable, c.ID, "to_load", c.ToLoad, "load", loads[c.ToLoad])
	}
	for _, b := range a.Buses {
		ref(domain.EntityBus, b.ID, "fed_from", b.FedFrom, "bus or transformer", buses[b.FedFrom] || transformers[b.FedFrom])
	}
	for _, t := range a.Transformers {
		ref(domain.EntityTransformer, t.ID, "secondary_bus", t.SecondaryBus, "bus", buses[t.SecondaryBus])
	}
	return results
}

// capacityAdvisory compares the apparent demand of all loads with the
// installed transformer capacity.
func capacityAdvisory(a *domain.Aggregate) []ValidationResult {
	if len(a.Transformers) == 0 || len(a.Loads) == 0 {
		return nil
	}
	capacity := 0.0
	for _, t := range a.Transformers {
		capacity += t.RatingKVA
	}
	demand := ApparentPowerKVA(a.Loads)

	ok := capacity > 0 && demand <= CapacityUtilization*capacity
	msg := fmt.Sprintf("System: Transformer Capacity: demand %.1f kVA within %.0f%% of %.0f kVA installed",
		demand, CapacityUtilization*100, capacity)
	if !ok {
		msg = fmt.Sprintf("System: Transformer Capacity: demand %.1f kVA exceeds %.0f%% of %.0f kVA installed; consider a larger transformer or load diversity review",
			demand, CapacityUtilization*100, capacity)
	}
	return []ValidationResult{{
		Passed: ok, FieldPath: "transformers.rating_kva",
		ExpectedValue: fmt.Sprintf("<= %.1f kVA", CapacityUtilization*capacity),
		ActualValue:   fmt.Sprintf("%.1f kVA", demand),
		Message:       msg,
	}}
}

// ApparentPowerKVA sums P/pf over loads. Loads without a usable power factor
// count at unity.
func ApparentPowerKVA(loads []*domain.LoadRecord) float64 {
	total := 0.0
	for _, l := range loads {
		if l.PowerKW <= 0 {
			continue
		}
		pf := l.PowerFactor
		if pf <= 0 || pf > 1 {
			pf = 1
		}
		total += l.PowerKW / pf
	}
	return total
}

// voltageHeterogeneity flags loads whose voltage matches neither the line nor
// the phase voltage of the bus that feeds them.
func voltageHeterogeneity(a *domain.Aggregate) []ValidationResult {
	buses := make(map[string]*domain.BusRecord, len(a.Buses))
	for _, b := range a.Buses {
		buses[b.ID] = b
	}

	var results []ValidationResult
	levels := make(map[float64]bool)
	for _, l := range a.Loads {
		if l.VoltageV > 0 {
			levels[l.VoltageV] = true
		}
		b, ok := buses[l.SourceBus]
		if !ok || b.VoltageV <= 0 || l.VoltageV <= 0 {
			continue
		}
		match := near(l.VoltageV, b.VoltageV) || near(l.VoltageV*math.Sqrt(3), b.VoltageV)
		results = append(results, check(match, domain.EntityLoad, l.ID, "voltage_v",
			fmtf(b.VoltageV)+" V system", fmtf(l.VoltageV), "System: Voltage Consistency",
			fmt.Sprintf("differs from bus %s at %s V", b.ID, fmtf(b.VoltageV))))
	}

	if len(levels) > 2 {
		vals := make([]string, 0, len(levels))
		for v := range levels {
			vals = append(vals, fmtf(v))
		}
		sort.Strings(vals)
		results = append(results, ValidationResult{
			Passed: false, FieldPath: "loads.voltage_v",
			ExpectedValue: "at most 2 voltage levels",
			ActualValue:   strings.Join(vals, ", "),
			Message:       fmt.Sprintf("System: Voltage Consistency: loads use %d voltage levels (%s)", len(levels), strings.Join(vals, ", ")),
		})
	}
	return results
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 0.05*b
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func loadIDs(a *domain.Aggregate) []string {
	ids := make([]string, 0, len(a.Loads))
	for _, l := range a.Loads {
		ids = append(ids, l.ID)
	}
	return ids
}

func cableIDs(a *domain.Aggregate) []string {
	ids := make([]string, 0, len(a.Cables))
	for _, c := range a.Cables {
		ids = append(ids, c.ID)
	}
	return ids
}

func busIDs(a *domain.Aggregate) []string {
	ids := make([]string, 0, len(a.Buses))
	for _, b := range a.Buses {
		ids = append(ids, b.ID)
	}
	return ids
}

func transformerIDs(a *domain.Aggregate) []string {
	ids := make([]string, 0, len(a.Transformers))
	for _, t := range a.Transformers {
		ids = append(ids, t.ID)
	}
	return ids
}
