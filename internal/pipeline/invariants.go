package pipeline

import (
	"fmt"
	"strings"

	"schedex/internal/domain"
)

// InvariantError reports a post-deduplication invariant that does not hold.
// It indicates a defect in the pipeline rather than bad input.
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	return "pipeline invariant violated: " + strings.Join(e.Violations, "; ")
}

// CheckInvariants verifies that identifiers are unique per entity type and
// that no entity instance occupies two slots.
func CheckInvariants(agg *domain.Aggregate) error {
	var violations []string
	instances := make(map[any]bool)

	checkIDs := func(et domain.EntityType, ids []string) {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			if seen[id] {
				violations = append(violations, fmt.Sprintf("duplicate %s id %q", et, id))
			}
			seen[id] = true
		}
	}
	checkInstance := func(et domain.EntityType, ptr any, id string) {
		if instances[ptr] {
			violations = append(violations, fmt.Sprintf("%s %q appears twice in the aggregate", et, id))
		}
		instances[ptr] = true
	}

	ids := make([]string, 0, len(agg.Loads))
	for _, l := range agg.Loads {
		ids = append(ids, l.ID)
		checkInstance(domain.EntityLoad, l, l.ID)
	}
	checkIDs(domain.EntityLoad, ids)

	ids = ids[:0]
	for _, c := range agg.Cables {
		ids = append(ids, c.ID)
		checkInstance(domain.EntityCable, c, c.ID)
	}
	checkIDs(domain.EntityCable, ids)

	ids = ids[:0]
	for _, b := range agg.Buses {
		ids = append(ids, b.ID)
		checkInstance(domain.EntityBus, b, b.ID)
	}
	checkIDs(domain.EntityBus, ids)

	ids = ids[:0]
	for _, t := range agg.Transformers {
		ids = append(ids, t.ID)
		checkInstance(domain.EntityTransformer, t, t.ID)
	}
	checkIDs(domain.EntityTransformer, ids)

	if len(violations) > 0 {
		return &InvariantError{Violations: violations}
	}
	return nil
}
