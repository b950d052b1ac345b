package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSimilarityScorer is a mock implementation of port.SimilarityScorer.
type MockSimilarityScorer struct {
	mock.Mock
}

func (m *MockSimilarityScorer) Similarity(ctx context.Context, text, candidate string) (float64, error) {
	args := m.Called(ctx, text, candidate)
	return args.Get(0).(float64), args.Error(1)
}
