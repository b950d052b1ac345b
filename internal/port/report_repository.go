package port

import (
	"context"

	"schedex/internal/domain"
)

// ReportRepository persists processing reports produced by pipeline runs.
type ReportRepository interface {
	Save(ctx context.Context, report *domain.ProcessingReport, archiveKey string) error
	GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error)
	List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error)
}
