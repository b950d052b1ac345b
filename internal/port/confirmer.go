package port

import (
	"context"

	"schedex/internal/domain"
)

// GrayZoneCandidate is a mapping too strong to discard and too weak to accept.
type GrayZoneCandidate struct {
	SheetName  string
	Header     string
	Field      string
	EntityType domain.EntityType
	Confidence float64
}

// Confirmer decides gray-zone mappings synchronously.
type Confirmer interface {
	Confirm(ctx context.Context, c GrayZoneCandidate) bool
}
