package summary

import (
	"context"
	"fmt"
	"strings"

	"financeflow/internal/core"
)

// Static renders a deterministic template from the aggregated figures. It
// is the default backend and needs no external service.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Generate(_ context.Context, in Input) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "In %s %d you earned %s %s and spent %s %s",
		in.Month, in.Year,
		in.Overview.Income.StringFixed(2), core.BaseCurrency,
		in.Overview.Expense.StringFixed(2), core.BaseCurrency)

	switch {
	case in.Overview.Balance.IsPositive():
		fmt.Fprintf(&b, ", saving %s %s.", in.Overview.Balance.StringFixed(2), core.BaseCurrency)
	case in.Overview.Balance.IsNegative():
		fmt.Fprintf(&b, ", overspending by %s %s.", in.Overview.Balance.Neg().StringFixed(2), core.BaseCurrency)
	default:
		b.WriteString(", breaking even.")
	}

	if len(in.Breakdown.Categories) > 0 {
		top := in.Breakdown.Categories[0]
		fmt.Fprintf(&b, " Your biggest expense category was %s at %s %s.",
			top.Category, top.Total.StringFixed(2), core.BaseCurrency)
	}

	for _, bs := range in.Budgets {
		if bs.Progress >= 1 {
			fmt.Fprintf(&b, " You hit your %s budget of %s %s.",
				bs.Category, bs.Goal.StringFixed(2), core.BaseCurrency)
		}
	}

	return b.String(), nil
}
