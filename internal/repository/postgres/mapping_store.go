package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"schedex/internal/port"
)

type mappingStore struct {
	db *sqlx.DB
}

// NewMappingStore creates a PostgreSQL-backed learning store.
func NewMappingStore(db *sqlx.DB) port.MappingStore {
	return &mappingStore{db: db}
}

func (s *mappingStore) Write(ctx context.Context, rec port.MappingRecord) error {
	query := `INSERT INTO learned_mappings (
		header, entity_type, field, confidence, uses, context, updated_at
	) VALUES ($1, $2, $3, $4, 1, $5, NOW())
	ON CONFLICT (header, entity_type, field) DO UPDATE SET
		confidence = GREATEST(learned_mappings.confidence, EXCLUDED.confidence),
		uses = learned_mappings.uses + 1,
		context = EXCLUDED.context,
		updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query, rec.Header, rec.EntityType, rec.Field, rec.Confidence, rec.Context)
	if err != nil {
		return fmt.Errorf("mappingStore.Write: %w", err)
	}
	return nil
}

func (s *mappingStore) Query(ctx context.Context, header, sheetContext string, topK int) ([]port.MappingPrior, error) {
	priors := []port.MappingPrior{}
	err := s.db.SelectContext(ctx, &priors,
		`SELECT field, entity_type, confidence, uses
		 FROM learned_mappings
		 WHERE header = $1
		 ORDER BY (context = $2) DESC, confidence DESC, uses DESC, field
		 LIMIT $3`, header, sheetContext, topK)
	if err != nil {
		return nil, fmt.Errorf("mappingStore.Query: %w", err)
	}
	return priors, nil
}
