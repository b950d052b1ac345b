package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/domain"
	"schedex/internal/service"
)

// MockRunService is a mock implementation of service.RunService.
type MockRunService struct {
	mock.Mock
}

func (m *MockRunService) Submit(ctx context.Context, input service.RunInput) (*domain.ProcessingReport, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingReport), args.Error(1)
}

func (m *MockRunService) GetByID(ctx context.Context, runID string) (*domain.ProcessingReport, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessingReport), args.Error(1)
}

func (m *MockRunService) List(ctx context.Context, offset, limit int) ([]domain.RunSummary, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.RunSummary), args.Int(1), args.Error(2)
}
