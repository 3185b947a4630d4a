// Package worker mirrors recorded transactions to an external spreadsheet.
// It consumes export messages carrying a transaction id and reads the
// current record from the shared snapshot store, so the exported row always
// reflects the latest edit.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/sheets"
)

// TransactionLoader reads the current transaction collection from the
// snapshot store.
type TransactionLoader interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
}

type ExportWorker struct {
	loader   TransactionLoader
	appender sheets.RowAppender
}

func NewExportWorker(loader TransactionLoader, appender sheets.RowAppender) *ExportWorker {
	return &ExportWorker{
		loader:   loader,
		appender: appender,
	}
}

// HandleExportMessage processes one export message. A transaction that no
// longer exists is dropped with a warning; requeueing it could never
// succeed.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	txns, err := w.loader.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	var found *core.Transaction
	for i := range txns {
		if txns[i].ID == msg.TransactionID {
			found = &txns[i]
			break
		}
	}
	if found == nil {
		slog.WarnContext(ctx, "Transaction missing from snapshot, dropping export",
			"transaction_id", msg.TransactionID)
		return nil
	}

	ref, err := w.appender.AppendTransaction(ctx, *found)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"transaction_id", found.ID,
		"sheets_ref", ref,
		"description", found.Description,
		"amount", found.Amount.String())
	return nil
}
