package extractor

import "schedex/internal/domain"

// row resolves target fields against the cells of one data row.
type row struct {
	cells   []any
	mapping *domain.FieldMapping
}

// cell returns the first non-blank cell among the field's source columns.
func (r row) cell(field string) any {
	mf := r.mapping.Field(field)
	if mf == nil {
		return nil
	}
	for _, idx := range mf.SourceIndexes {
		if idx >= 0 && idx < len(r.cells) && !domain.IsBlankCell(r.cells[idx]) {
			return r.cells[idx]
		}
	}
	return nil
}

func (r row) text(field string) string {
	return CellString(r.cell(field))
}

// quantity parses the field's cell. A unit written in the cell wins over the
// unit detected from the header.
func (r row) quantity(field string) (float64, string, bool) {
	v, unit, ok := ParseQuantity(r.cell(field))
	if !ok {
		return 0, "", false
	}
	if unit == "" {
		if mf := r.mapping.Field(field); mf != nil {
			unit = mf.Unit
		}
	}
	return v, unit, true
}

// kvRow is a row view over label/value pairs from a key/value sheet.
type kvRow struct {
	values map[string]any
}

func (k kvRow) text(field string) string {
	return CellString(k.values[field])
}

func (k kvRow) number(field string) float64 {
	v, ok := ParseNumber(k.values[field])
	if !ok {
		return 0
	}
	return v
}

func (k kvRow) volts(field string) float64 {
	v, unit, ok := ParseQuantity(k.values[field])
	if !ok {
		return 0
	}
	return toVolts(v, unit)
}
