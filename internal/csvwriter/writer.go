// Package csvwriter emits account snapshots as CSV.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
)

// Header is the column order of the account CSV.
var Header = []string{"client", "available", "held", "total", "locked"}

// Write writes a header and one row per account. Amounts are rendered with
// exactly precision decimal places.
func Write(w io.Writer, accounts []ledger.AccountSnapshot, precision int32) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, acc := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			acc.Available.StringFixed(precision),
			acc.Held.StringFixed(precision),
			acc.Total.StringFixed(precision),
			strconv.FormatBool(acc.Locked),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write account %d: %w", acc.Client, err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush accounts: %w", err)
	}

	return nil
}
