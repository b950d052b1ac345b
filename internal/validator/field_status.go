package validator

import (
	"schedex/internal/domain"
	"schedex/internal/validator/schedule"
)

// checkedResult pairs a validation result with its rule's severity.
type checkedResult struct {
	result   schedule.ValidationResult
	severity domain.Severity
}

// EntityKey is the report key of an entity: "<entity_type>:<id>".
func EntityKey(et domain.EntityType, id string) string {
	return string(et) + ":" + id
}

// ComputeEntityStatuses derives a status per checked entity. A failed error
// check makes an entity invalid; a failed warning or info check makes it
// unsure. Aggregate-level results are not attributed to any entity.
func ComputeEntityStatuses(checked []checkedResult) map[string]*domain.EntityStatus {
	statuses := make(map[string]*domain.EntityStatus)
	for _, c := range checked {
		r := c.result
		if r.EntityType == "" || r.EntityID == "" {
			continue
		}
		key := EntityKey(r.EntityType, r.EntityID)
		es, ok := statuses[key]
		if !ok {
			es = &domain.EntityStatus{Status: domain.EntityStatusValid, Messages: []string{}}
			statuses[key] = es
		}
		if r.Passed {
			continue
		}
		if c.severity == domain.SeverityError {
			es.Status = domain.EntityStatusInvalid
		} else if es.Status != domain.EntityStatusInvalid {
			es.Status = domain.EntityStatusUnsure
		}
		es.Messages = append(es.Messages, r.Message)
	}
	return statuses
}
