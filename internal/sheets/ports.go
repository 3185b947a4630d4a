package sheets

import (
	"context"

	"financeflow/internal/core"
)

// Ports for outbound adapters.
type (
	// RowAppender mirrors a transaction as a row in an external
	// spreadsheet. The returned rowRef identifies where it landed.
	RowAppender interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
