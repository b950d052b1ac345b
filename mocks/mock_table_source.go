package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/domain"
)

// MockTableSource is a mock implementation of port.TableSource.
type MockTableSource struct {
	mock.Mock
}

func (m *MockTableSource) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTableSource) ReadSheets(ctx context.Context) ([]domain.RawSheet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawSheet), args.Error(1)
}
