// Package excel reads xlsx workbooks into raw sheets.
package excel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"schedex/internal/domain"
)

// HeaderScanRows is how many leading rows are searched for the header row.
const HeaderScanRows = 10

// Source is a TableSource over one workbook.
type Source struct {
	name string
	open func() (*excelize.File, error)
}

// Open creates a source for a workbook on disk. The file is opened on read.
func Open(path string) *Source {
	return &Source{
		name: filepath.Base(path),
		open: func() (*excelize.File, error) { return excelize.OpenFile(path) },
	}
}

// FromBytes creates a source over an in-memory workbook.
func FromBytes(name string, data []byte) *Source {
	return &Source{
		name: name,
		open: func() (*excelize.File, error) { return excelize.OpenReader(bytes.NewReader(data)) },
	}
}

// FromReader buffers r and creates a source over its contents.
func FromReader(name string, r io.Reader) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	return FromBytes(name, data), nil
}

func (s *Source) Name() string { return s.name }

// ReadSheets reads every sheet in workbook order. Any sheet failure fails the
// whole read so that a partially decoded workbook is never processed.
func (s *Source) ReadSheets(ctx context.Context) ([]domain.RawSheet, error) {
	f, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()

	var sheets []domain.RawSheet
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, &SheetError{SheetName: name, Err: err}
		}
		sheets = append(sheets, BuildSheet(name, rows))
	}
	return sheets, nil
}

// BuildSheet turns string rows into a RawSheet. The header is the first row
// within HeaderScanRows that has at least two text cells; failing that, the
// first non-empty row. Rows above the header are dropped.
func BuildSheet(name string, rows [][]string) domain.RawSheet {
	sheet := domain.RawSheet{Name: name}
	h := headerRow(rows)
	if h < 0 {
		return sheet
	}

	headers := make([]string, len(rows[h]))
	for i, c := range rows[h] {
		headers[i] = strings.TrimSpace(c)
	}
	sheet.Headers = headers

	for _, r := range rows[h+1:] {
		cells := make([]any, len(r))
		for i, c := range r {
			cells[i] = parseValue(c)
		}
		sheet.Rows = append(sheet.Rows, cells)
	}
	return sheet
}

func headerRow(rows [][]string) int {
	first := -1
	for i, r := range rows {
		if i >= HeaderScanRows && first >= 0 {
			break
		}
		text, filled := 0, 0
		for _, c := range r {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			filled++
			if _, isText := parseValue(c).(string); isText {
				text++
			}
		}
		if filled > 0 && first < 0 {
			first = i
		}
		if i < HeaderScanRows && text >= 2 {
			return i
		}
	}
	return first
}

// parseValue returns float64 for numeric text, nil for blanks and the trimmed
// string otherwise. Digits with a leading zero ("007") stay text so tags keep
// their spelling.
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9' {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
