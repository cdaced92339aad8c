package xlsxparser

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"github.com/ginjaninja78/payments-engine/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves rows to a new workbook with a single sheet.
func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}

	path := filepath.Join(t.TempDir(), "transactions.xlsx")
	require.NoError(t, f.SaveAs(path))

	return path
}

func TestSheetReaderReadsRecords(t *testing.T) {
	path := writeWorkbook(t, "ledger", [][]interface{}{
		{"Type", "Client", "TX", "Amount"},
		{"deposit", 1, 1, "1.5"},
		{"withdrawal", 1, 2, "0.5"},
		{"dispute", 1, 1},
	})

	r, err := Open(path, "")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"type", "client", "tx", "amount"}, r.Headers())

	var records []types.Record
	for r.Next() {
		records = append(records, r.Record())
	}
	require.NoError(t, r.Err())
	require.Len(t, records, 3)

	assert.Equal(t, 2, records[0].Row)
	assert.Equal(t, "deposit", records[0].Get(types.ColumnType))
	assert.Equal(t, "1", records[0].Get(types.ColumnClient))
	assert.Equal(t, "1.5", records[0].Get(types.ColumnAmount))

	assert.Equal(t, "dispute", records[2].Get(types.ColumnType))
	assert.Equal(t, "", records[2].Get(types.ColumnAmount))
}

func TestSheetReaderReadsStoredAmountsNotFormattedText(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"type", "client", "tx", "amount"},
		{"deposit", 1, 1, 2.5},
		{"deposit", 1, 2, 0.1234},
		{"deposit", 1, 3, 123456789.1234},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}

	// Built-in formats "0" and "0.00" would display 3 and 0.12.
	whole, err := f.NewStyle(&excelize.Style{NumFmt: 1})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "D2", "D2", whole))

	twoPlaces, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "D3", "D3", twoPlaces))

	path := filepath.Join(t.TempDir(), "styled.xlsx")
	require.NoError(t, f.SaveAs(path))

	r, err := Open(path, "")
	require.NoError(t, err)
	defer r.Close()

	var amounts []string
	for r.Next() {
		amounts = append(amounts, r.Record().Get(types.ColumnAmount))
	}
	require.NoError(t, r.Err())

	require.Len(t, amounts, 3)
	for i, want := range []string{"2.5", "0.1234", "123456789.1234"} {
		assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(amounts[i])),
			"row %d: got %q, want %s", i+2, amounts[i], want)
	}
}

func TestSheetReaderNamedSheetAndErrors(t *testing.T) {
	path := writeWorkbook(t, "ledger", [][]interface{}{
		{"type", "client", "amount"},
	})

	_, err := Open(path, "ledger")
	require.ErrorContains(t, err, `missing column "tx"`)

	_, err = Open(path, "nope")
	require.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	require.Error(t, err)
}

func TestWriteAccounts(t *testing.T) {
	accounts := []ledger.AccountSnapshot{
		{Client: 1, Available: decimal.RequireFromString("1.5"), Held: decimal.Zero, Total: decimal.RequireFromString("1.5")},
		{Client: 2, Available: decimal.Zero, Held: decimal.Zero, Total: decimal.Zero, Locked: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts, 4))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(AccountsSheet)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"client", "available", "held", "total", "locked"},
		{"1", "1.5000", "0.0000", "1.5000", "false"},
		{"2", "0.0000", "0.0000", "0.0000", "true"},
	}, rows)
}

func TestSheetReaderFromWriterOutputFails(t *testing.T) {
	// An accounts workbook is not a transaction workbook.
	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, nil, 2))

	_, err := NewSheetReader(&buf, AccountsSheet)
	require.ErrorContains(t, err, "missing column")
}
