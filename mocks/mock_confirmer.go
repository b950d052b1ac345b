package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"schedex/internal/port"
)

// MockConfirmer is a mock implementation of port.Confirmer.
type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) Confirm(ctx context.Context, c port.GrayZoneCandidate) bool {
	args := m.Called(ctx, c)
	return args.Bool(0)
}
