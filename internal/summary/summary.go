// Package summary turns a month of aggregated figures into a short
// human-readable spending summary.
package summary

import (
	"context"
	"time"

	"financeflow/internal/core"
)

// Input is one month's worth of aggregated figures. Amounts are in the
// base currency.
type Input struct {
	Year      int
	Month     time.Month
	Overview  core.Overview
	Breakdown core.Breakdown
	Budgets   []core.BudgetStatus
}

// Generator produces a spending summary for one month.
type Generator interface {
	Generate(ctx context.Context, in Input) (string, error)
}
