// Package source provides table sources that need no container decoding.
package source

import (
	"context"

	"schedex/internal/domain"
)

// Static serves sheets that are already in memory.
type Static struct {
	name   string
	sheets []domain.RawSheet
}

// NewStatic creates a source over the given sheets.
func NewStatic(name string, sheets ...domain.RawSheet) *Static {
	return &Static{name: name, sheets: sheets}
}

func (s *Static) Name() string { return s.name }

// ReadSheets returns a copy of the sheet list so runs cannot affect each other.
func (s *Static) ReadSheets(ctx context.Context) ([]domain.RawSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.RawSheet, len(s.sheets))
	for i, sh := range s.sheets {
		rows := make([][]any, len(sh.Rows))
		for j, r := range sh.Rows {
			rows[j] = append([]any(nil), r...)
		}
		out[i] = domain.RawSheet{
			Name:    sh.Name,
			Headers: append([]string(nil), sh.Headers...),
			Rows:    rows,
		}
	}
	return out, nil
}
