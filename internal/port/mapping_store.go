package port

import (
	"context"

	"schedex/internal/domain"
)

// MappingRecord is one accepted header-to-field mapping offered to the learning store.
type MappingRecord struct {
	Header     string
	Field      string
	EntityType domain.EntityType
	Confidence float64
	Context    string
}

// MappingPrior is a historical mapping returned by a store query, best first.
type MappingPrior struct {
	Field      string            `db:"field"`
	EntityType domain.EntityType `db:"entity_type"`
	Confidence float64           `db:"confidence"`
	Uses       int               `db:"uses"`
}

// MappingStore remembers mappings across runs. Both operations are best-effort
// from the mapper's point of view.
type MappingStore interface {
	Write(ctx context.Context, rec MappingRecord) error
	Query(ctx context.Context, header, sheetContext string, topK int) ([]MappingPrior, error)
}
