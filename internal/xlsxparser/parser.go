// =============================================================================
// Payments Engine - XLSX Module
// =============================================================================
//
// This module reads transaction records from an XLSX workbook and writes
// final account balances to one. Spreadsheets are a common hand-off format
// for back-office corrections, so both directions are supported.
//
// INPUT LAYOUT:
//   Row 1 is the header row (type, client, tx, amount, any order, any case).
//   Every following non-empty row is one transaction record.
//
//   | type       | client | tx | amount |
//   |------------|--------|----|--------|
//   | deposit    | 1      | 1  | 1.0    |
//   | dispute    | 1      | 1  |        |
//
// OUTPUT LAYOUT:
//   One sheet named "accounts" with columns client, available, held, total,
//   locked. Amounts are written as text so no precision is lost to
//   spreadsheet floating point.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"github.com/ginjaninja78/payments-engine/internal/types"
	"github.com/xuri/excelize/v2"
)

// AccountsSheet is the sheet name used for account output.
const AccountsSheet = "accounts"

var requiredColumns = []string{types.ColumnType, types.ColumnClient, types.ColumnTx}

// =============================================================================
// SHEET READER
// =============================================================================

// SheetReader iterates the transaction rows of one worksheet.
type SheetReader struct {
	file      *excelize.File
	rows      *excelize.Rows
	sheet     string
	headers   []string
	current   types.Record
	rowNumber int
	err       error
}

// Open opens a workbook and positions the reader after the header row of
// the named sheet. An empty sheet name selects the first sheet.
func Open(path, sheet string) (*SheetReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	reader, err := newSheetReader(f, sheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	return reader, nil
}

// NewSheetReader reads a workbook from r.
func NewSheetReader(r io.Reader, sheet string) (*SheetReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	reader, err := newSheetReader(f, sheet)
	if err != nil {
		f.Close()
		return nil, err
	}

	return reader, nil
}

func newSheetReader(f *excelize.File, sheet string) (*SheetReader, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	reader := &SheetReader{file: f, rows: rows, sheet: sheet}

	if err := reader.readHeaders(); err != nil {
		rows.Close()
		return nil, err
	}

	return reader, nil
}

func (r *SheetReader) readHeaders() error {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return fmt.Errorf("error reading header row: %w", err)
		}

		return fmt.Errorf("sheet %q is empty", r.sheet)
	}

	r.rowNumber++

	cells, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}

	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = types.NormalizeHeader(cell)
	}

	for _, column := range requiredColumns {
		if !slices.Contains(headers, column) {
			return fmt.Errorf("sheet %q header is missing column %q", r.sheet, column)
		}
	}

	r.headers = headers

	return nil
}

// Next advances to the next non-empty row.
func (r *SheetReader) Next() bool {
	for r.err == nil && r.rows.Next() {
		r.rowNumber++

		cells, err := r.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			r.err = fmt.Errorf("error reading row %d: %w", r.rowNumber, err)
			return false
		}

		if types.IsBlank(cells) {
			continue
		}

		r.current = types.NewRecord(r.rowNumber, r.headers, cells)

		return true
	}

	if r.err == nil {
		if err := r.rows.Error(); err != nil {
			r.err = fmt.Errorf("error reading sheet %q: %w", r.sheet, err)
		}
	}

	return false
}

// Record returns the current row.
func (r *SheetReader) Record() types.Record {
	return r.current
}

// Headers returns the normalized headers.
func (r *SheetReader) Headers() []string {
	return r.headers
}

// Err returns the first read error.
func (r *SheetReader) Err() error {
	return r.err
}

// Close releases the row iterator and the workbook.
func (r *SheetReader) Close() error {
	if err := r.rows.Close(); err != nil {
		r.file.Close()
		return err
	}

	return r.file.Close()
}

// =============================================================================
// ACCOUNT WRITER
// =============================================================================

// WriteAccounts writes account snapshots as a workbook to w.
func WriteAccounts(w io.Writer, accounts []ledger.AccountSnapshot, precision int32) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), AccountsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"client", "available", "held", "total", "locked"}
	if err := f.SetSheetRow(AccountsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, acc := range accounts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		row := []interface{}{
			int(acc.Client),
			acc.Available.StringFixed(precision),
			acc.Held.StringFixed(precision),
			acc.Total.StringFixed(precision),
			strconv.FormatBool(acc.Locked),
		}

		if err := f.SetSheetRow(AccountsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write account %d: %w", acc.Client, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}
