package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"idoosync/pkg/contracts/domain"
)

// ErrMalformedReport is returned when the acquired workbook lacks the
// columns needed to tell header rows from items
var ErrMalformedReport = errors.New("malformed report")

var requiredColumns = []string{domain.ColumnItemNumber, domain.ColumnManufacturer}

// Parse reads the first sheet of the workbook at path. The first row is
// the header; every following row becomes a ReportRow keyed by header
// name. Cell values are read raw so numbers keep their stored precision.
func Parse(path string) ([]domain.ReportRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrMalformedReport)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return ParseRows(rows)
}

// ParseRows maps a header row and its data rows into ReportRows
func ParseRows(rows [][]string) ([]domain.ReportRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMalformedReport)
	}

	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, name := range rows[0] {
		name = CanonicalColumn(name)
		// a later column claiming the same name keeps its raw header
		if present[name] {
			name = strings.TrimSpace(rows[0][i])
		}
		header[i] = name
		present[name] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedReport, col)
		}
	}

	out := make([]domain.ReportRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		values := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" || j >= len(row) {
				continue
			}
			if _, seen := values[name]; seen {
				continue
			}
			values[name] = strings.TrimSpace(row[j])
		}
		out = append(out, domain.ReportRow{Index: i + 1, Values: values})
	}
	return out, nil
}

// CanonicalColumn maps a header cell onto the report column it starts
// with, so "7 Days Sales" reads as "7 Days". The longest matching column
// wins; headers matching none are returned trimmed.
func CanonicalColumn(header string) string {
	header = strings.TrimSpace(header)
	best := ""
	for _, col := range domain.ReportColumns {
		if !hasColumnPrefix(header, col) {
			continue
		}
		if len(col) > len(best) {
			best = col
		}
	}
	if best == "" {
		return header
	}
	return best
}

// hasColumnPrefix reports whether header is col or col followed by a
// separate word, case-insensitively
func hasColumnPrefix(header, col string) bool {
	if len(header) < len(col) || !strings.EqualFold(header[:len(col)], col) {
		return false
	}
	if len(header) == len(col) {
		return true
	}
	switch header[len(col)] {
	case ' ', '(', '-', '_', '/', '.':
		return true
	}
	return false
}
