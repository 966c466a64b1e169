package fsa

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrBadLayout is returned when a sheet is not a three-column statement.
var ErrBadLayout = errors.New("bad statement layout")

// ReadOptions controls how a workbook is read.
type ReadOptions struct {
	// Sheet to read, the first sheet if empty.
	Sheet string
	// Source names the workbook in the Statement, typically its file name.
	Source string
}

// OpenWorkbook reads the statement in the Excel file at path.
func OpenWorkbook(path string, opts ReadOptions) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open workbook %q: %w", path, err)
	}
	defer f.Close()
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	return ReadWorkbook(f, opts)
}

// ReadWorkbook reads a statement from an Excel workbook.
//
// The first non-blank row of the sheet is the header, it must have at least
// three columns: line item, prior year, current year. Extra columns are
// ignored. Every following non-blank row is a line item, values that are not
// numbers are 0.
func ReadWorkbook(r io.Reader, opts ReadOptions) (*Statement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not read workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheet", ErrBadLayout)
		}
		sheet = sheets[0]
	}

	// raw values, so that number formats (thousands separators, currencies) do not get in the way.
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}

	s := &Statement{Source: opts.Source, Sheet: sheet}
	header := true
	for i, row := range cells {
		if isBlank(row) {
			continue
		}
		if header {
			if len(row) < 3 {
				return nil, fmt.Errorf("%w: header on row %d has %d column(s), expected 3", ErrBadLayout, i+1, len(row))
			}
			for j := range s.Header {
				s.Header[j] = strings.TrimSpace(row[j])
			}
			header = false
			continue
		}
		s.Rows = append(s.Rows, s.parseRow(row))
	}
	if header {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrBadLayout, sheet)
	}
	if len(s.Rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no line item", ErrBadLayout, sheet)
	}
	return s, nil
}

// parseRow converts a sheet row into a Row, counting coerced values.
func (s *Statement) parseRow(row []string) Row {
	cell := func(j int) string {
		if j < len(row) {
			return row[j]
		}
		return ""
	}
	value := func(j int) float64 {
		v, ok := ParseValue(cell(j))
		if !ok {
			s.Coerced++
		}
		return v
	}
	return Row{
		Label:   strings.TrimSpace(cell(0)),
		Prior:   value(1),
		Current: value(2),
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
