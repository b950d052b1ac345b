package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/port"
)

// MockMappingStore is a mock implementation of port.MappingStore.
type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) Write(ctx context.Context, rec port.MappingRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockMappingStore) Query(ctx context.Context, header, sheetContext string, topK int) ([]port.MappingPrior, error) {
	args := m.Called(ctx, header, sheetContext, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.MappingPrior), args.Error(1)
}
