package validator

import (
	"context"
	"log"

	"schedex/internal/domain"
)

// Report is the outcome of validating one aggregate.
type Report struct {
	IsValid         bool
	Checks          int
	Errors          []domain.ValidationIssue
	Warnings        []domain.ValidationIssue
	Recommendations []domain.ValidationIssue
	// Violations holds every failed check in rule order.
	Violations     []domain.ValidationIssue
	QualityScore   float64
	EntityStatuses map[string]*domain.EntityStatus
}

// Summary returns the counts embedded in a processing report.
func (r *Report) Summary() *domain.ValidationSummary {
	return &domain.ValidationSummary{
		IsValid:         r.IsValid,
		Checks:          r.Checks,
		Errors:          len(r.Errors),
		Warnings:        len(r.Warnings),
		Recommendations: len(r.Recommendations),
		QualityScore:    r.QualityScore,
	}
}

// Engine runs every registered rule against an aggregate.
type Engine struct {
	registry *Registry
}

// NewEngine creates a new validation engine.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Validate never fails: findings are returned as data. An aggregate is valid
// when no error-severity check fails.
func (e *Engine) Validate(ctx context.Context, agg *domain.Aggregate) *Report {
	rep := &Report{
		Errors:          []domain.ValidationIssue{},
		Warnings:        []domain.ValidationIssue{},
		Recommendations: []domain.ValidationIssue{},
		Violations:      []domain.ValidationIssue{},
	}

	var checked []checkedResult
	for _, v := range e.registry.All() {
		for _, vr := range v.Validate(ctx, agg) {
			rep.Checks++
			checked = append(checked, checkedResult{result: vr, severity: v.Severity()})
			if vr.Passed {
				continue
			}
			issue := domain.ValidationIssue{
				RuleKey:       v.RuleKey(),
				Severity:      v.Severity(),
				EntityType:    vr.EntityType,
				EntityID:      vr.EntityID,
				FieldPath:     vr.FieldPath,
				ExpectedValue: vr.ExpectedValue,
				ActualValue:   vr.ActualValue,
				Message:       vr.Message,
			}
			rep.Violations = append(rep.Violations, issue)
			switch v.Severity() {
			case domain.SeverityError:
				rep.Errors = append(rep.Errors, issue)
			case domain.SeverityWarning:
				rep.Warnings = append(rep.Warnings, issue)
			default:
				rep.Recommendations = append(rep.Recommendations, issue)
			}
		}
	}

	rep.IsValid = len(rep.Errors) == 0
	rep.QualityScore = QualityScore(rep.Checks, len(rep.Errors), len(rep.Warnings))
	rep.EntityStatuses = ComputeEntityStatuses(checked)

	log.Printf("validator.Engine: %d checks, %d errors, %d warnings, %d recommendations",
		rep.Checks, len(rep.Errors), len(rep.Warnings), len(rep.Recommendations))
	return rep
}

// QualityScore is (total - errors - 0.5*warnings) / total, floored at 0.
// With no checks the score is 1.
func QualityScore(total, errors, warnings int) float64 {
	if total == 0 {
		return 1.0
	}
	q := (float64(total) - float64(errors) - 0.5*float64(warnings)) / float64(total)
	return max(q, 0)
}
