package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/domain"
)

// MockRunNotifier is a mock implementation of port.RunNotifier.
type MockRunNotifier struct {
	mock.Mock
}

func (m *MockRunNotifier) NotifyReviewRequired(ctx context.Context, report *domain.ProcessingReport, reportURL string) error {
	args := m.Called(ctx, report, reportURL)
	return args.Error(0)
}
