// =============================================================================
// Payments Engine - Shared Types
// =============================================================================
//
// This package contains types shared by the input readers and the validation
// package to avoid import cycles. Types defined here are used by:
//   - csvparser
//   - xlsxparser
//   - validation
//   - processor
//
// =============================================================================

package types

import "strings"

// Column names of a transaction record.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// Record is one raw data row of an input file, before validation.
type Record struct {
	// Row is the 1-indexed row number in the source file, header included.
	Row int

	// Fields maps normalized (lowercase, trimmed) header names to trimmed
	// cell values. Columns missing from a short row map to "".
	Fields map[string]string
}

// Get returns the value of a column, or "" when absent.
func (r Record) Get(column string) string {
	return r.Fields[column]
}

// NormalizeHeader lowercases and trims a header cell so that "Type",
// " type " and "TYPE" address the same column.
func NormalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// NewRecord builds a Record from a header row and a data row.
func NewRecord(row int, headers, cells []string) Record {
	fields := make(map[string]string, len(headers))

	for i, header := range headers {
		if i < len(cells) {
			fields[header] = strings.TrimSpace(cells[i])
		} else {
			fields[header] = ""
		}
	}

	return Record{Row: row, Fields: fields}
}

// IsBlank reports whether every cell of a raw row is empty.
func IsBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
