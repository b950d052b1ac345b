package port

import (
	"context"

	"schedex/internal/domain"
)

// LoadCalculator derives electrical quantities for one extracted load.
type LoadCalculator interface {
	Calculate(ctx context.Context, load *domain.LoadRecord) (*domain.LoadCalculation, error)
}
