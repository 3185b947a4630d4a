// Package export renders transaction collections for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"financeflow/internal/core"
)

var csvHeader = []string{"date", "description", "amount", "currency", "type", "category", "account"}

// WriteCSV writes the transactions as CSV in the given order, header first.
func WriteCSV(w io.Writer, txns []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txns {
		record := []string{
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Amount.String(),
			t.Currency,
			string(t.Type),
			t.Category,
			string(t.Account),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
