package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/domain"
)

// MockReportRepo is a mock implementation of port.ReportRepository.
type MockReportRepo struct {
	mock.Mock
}

func (m *MockReportRepo) Save(ctx context.Context, report *domain.ProcessingReport, archiveKey string) error {
	args := m.Called(ctx, report, archiveKey)
	return args.Error(0)
}

func (m *MockReportRepo) GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingReport), args.Error(1)
}

func (m *MockReportRepo) List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.RunSummary), args.Int(1), args.Error(2)
}
