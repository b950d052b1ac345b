package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"schedex/internal/domain"
	"schedex/internal/port"
)

type reportRepo struct {
	db *sqlx.DB
}

// NewReportRepo creates a new PostgreSQL-backed ReportRepository.
func NewReportRepo(db *sqlx.DB) port.ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Save(ctx context.Context, report *domain.ProcessingReport, archiveKey string) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("reportRepo.Save: marshaling report: %w", err)
	}
	createdAt := report.Provenance.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `INSERT INTO run_reports (
		run_id, source_name, status, overall_confidence, total_components,
		requires_review, archive_key, report, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id) DO UPDATE SET
		status = EXCLUDED.status,
		overall_confidence = EXCLUDED.overall_confidence,
		total_components = EXCLUDED.total_components,
		requires_review = EXCLUDED.requires_review,
		archive_key = EXCLUDED.archive_key,
		report = EXCLUDED.report`

	_, err = r.db.ExecContext(ctx, query,
		report.RunID, report.SourceName, report.Status, report.OverallConfidence, report.TotalComponents,
		report.RequiresReview, archiveKey, data, createdAt)
	if err != nil {
		return fmt.Errorf("reportRepo.Save: %w", err)
	}
	return nil
}

func (r *reportRepo) GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error) {
	var data []byte
	err := r.db.GetContext(ctx, &data, "SELECT report FROM run_reports WHERE run_id = $1", runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reportRepo.GetByID: %w", err)
	}
	var report domain.ProcessingReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("reportRepo.GetByID: unmarshaling report: %w", err)
	}
	return &report, nil
}

func (r *reportRepo) List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM run_reports"); err != nil {
		return nil, 0, fmt.Errorf("reportRepo.List count: %w", err)
	}

	runs := []domain.RunSummary{}
	err := r.db.SelectContext(ctx, &runs,
		`SELECT run_id, source_name, status, overall_confidence, total_components,
		        requires_review, archive_key, created_at
		 FROM run_reports
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("reportRepo.List: %w", err)
	}
	return runs, total, nil
}
