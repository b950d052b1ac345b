package schedule

import (
	"context"
	"fmt"
	"strconv"

	"schedex/internal/domain"
)

// ValidationResult is the outcome of one check against one entity or the
// aggregate as a whole.
type ValidationResult struct {
	Passed        bool
	EntityType    domain.EntityType
	EntityID      string
	FieldPath     string
	ExpectedValue string
	ActualValue   string
	Message       string
}

// ruleValidator is a builtin rule backed by a closure.
type ruleValidator struct {
	ruleKey  string
	ruleName string
	ruleType domain.ValidationRuleType
	severity domain.Severity
	validate func(*domain.Aggregate) []ValidationResult
}

func (v *ruleValidator) RuleKey() string                     { return v.ruleKey }
func (v *ruleValidator) RuleName() string                    { return v.ruleName }
func (v *ruleValidator) RuleType() domain.ValidationRuleType { return v.ruleType }
func (v *ruleValidator) Severity() domain.Severity           { return v.severity }

func (v *ruleValidator) Validate(_ context.Context, agg *domain.Aggregate) []ValidationResult {
	return v.validate(agg)
}

// BuiltinValidators returns every builtin rule, entity rules first.
func BuiltinValidators() []*ruleValidator {
	ent := EntityValidators()
	sys := SystemValidators()
	all := make([]*ruleValidator, 0, len(ent)+len(sys))
	all = append(all, ent...)
	return append(all, sys...)
}

func fmtf(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func path(et domain.EntityType, id, field string) string {
	return fmt.Sprintf("%s[%s].%s", et, id, field)
}

// check builds a result whose message depends on whether it passed.
func check(passed bool, et domain.EntityType, id, field, expected, actual, rule, failMsg string) ValidationResult {
	fp := path(et, id, field)
	msg := fmt.Sprintf("%s: %s ok", rule, fp)
	if !passed {
		msg = fmt.Sprintf("%s: %s %s", rule, fp, failMsg)
	}
	return ValidationResult{
		Passed: passed, EntityType: et, EntityID: id, FieldPath: fp,
		ExpectedValue: expected, ActualValue: actual, Message: msg,
	}
}
