package port

import (
	"context"

	"schedex/internal/domain"
)

// TableSource yields the named sheets of a workbook. Implementations decode the
// container format; the pipeline only sees headers and scalar cell values.
type TableSource interface {
	Name() string
	ReadSheets(ctx context.Context) ([]domain.RawSheet, error)
}
