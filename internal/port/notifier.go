package port

import (
	"context"

	"schedex/internal/domain"
)

// RunNotifier tells reviewers about runs that need manual attention.
type RunNotifier interface {
	NotifyReviewRequired(ctx context.Context, report *domain.ProcessingReport, reportURL string) error
}
