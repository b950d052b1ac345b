package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"schedex/internal/domain"
)

type storedReport struct {
	data    []byte
	summary domain.RunSummary
}

// ReportRepo keeps run reports in memory, newest first in listings.
type ReportRepo struct {
	mu      sync.RWMutex
	reports map[string]*storedReport
	order   []string
}

// NewReportRepo creates an empty repository.
func NewReportRepo() *ReportRepo {
	return &ReportRepo{reports: make(map[string]*storedReport)}
}

// Save stores a snapshot of the report. Saving the same run again replaces it.
func (r *ReportRepo) Save(_ context.Context, report *domain.ProcessingReport, archiveKey string) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("memory.ReportRepo.Save: %w", err)
	}
	createdAt := report.Provenance.StartedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[report.RunID]; !exists {
		r.order = append(r.order, report.RunID)
	}
	r.reports[report.RunID] = &storedReport{
		data: data,
		summary: domain.RunSummary{
			RunID:             report.RunID,
			SourceName:        report.SourceName,
			Status:            report.Status,
			OverallConfidence: report.OverallConfidence,
			TotalComponents:   report.TotalComponents,
			RequiresReview:    report.RequiresReview,
			ArchiveKey:        archiveKey,
			CreatedAt:         createdAt,
		},
	}
	return nil
}

func (r *ReportRepo) GetByID(_ context.Context, runID string) (*domain.ProcessingReport, error) {
	r.mu.RLock()
	s, ok := r.reports[runID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var report domain.ProcessingReport
	if err := json.Unmarshal(s.data, &report); err != nil {
		return nil, fmt.Errorf("memory.ReportRepo.GetByID: %w", err)
	}
	return &report, nil
}

func (r *ReportRepo) List(_ context.Context, offset, limit int) ([]domain.RunSummary, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	total := len(r.order)
	out := []domain.RunSummary{}
	for i := total - 1 - offset; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.reports[r.order[i]].summary)
	}
	return out, total, nil
}
