package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/domain"
)

// MockLoadCalculator is a mock implementation of port.LoadCalculator.
type MockLoadCalculator struct {
	mock.Mock
}

func (m *MockLoadCalculator) Calculate(ctx context.Context, load *domain.LoadRecord) (*domain.LoadCalculation, error) {
	args := m.Called(ctx, load)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoadCalculation), args.Error(1)
}
