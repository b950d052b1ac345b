package validator

import (
	"context"

	"schedex/internal/domain"
	"schedex/internal/validator/schedule"
)

// Validator is the interface for a single built-in validation rule.
type Validator interface {
	Validate(ctx context.Context, agg *domain.Aggregate) []schedule.ValidationResult
	RuleKey() string
	RuleName() string
	RuleType() domain.ValidationRuleType
	Severity() domain.Severity
}
