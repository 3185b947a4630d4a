package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

const (
	SortByDate        SortBy = "date"
	SortByAmount      SortBy = "amount"
	SortByDescription SortBy = "description"
)

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

type (
	// Granularity is the time-bucketing resolution of the history view.
	Granularity string

	SortBy    string
	SortOrder string

	// Bucket is a group of transactions sharing a time-period key. Income
	// and Expense cover only BaseCurrency transactions; the transaction
	// list carries every currency.
	Bucket struct {
		Key          string          `json:"key"`
		Date         time.Time       `json:"date"`
		Transactions []Transaction   `json:"transactions"`
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
	}

	// CategoryTotal is one slice of the expense breakdown.
	CategoryTotal struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	// Breakdown is the per-category expense rollup over a caller-filtered
	// window, sorted descending by total.
	Breakdown struct {
		Categories []CategoryTotal `json:"categories"`
		Total      decimal.Decimal `json:"total"`
	}

	// DayRollup holds one calendar day's transactions and its BaseCurrency
	// sums.
	DayRollup struct {
		Transactions []Transaction   `json:"transactions"`
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
	}

	// CalendarSummary is the per-day view of a single displayed month.
	// Days has no entry for a day without transactions; a missing key
	// means an empty day, not an error.
	CalendarSummary struct {
		Days    map[string]DayRollup `json:"days"`
		Income  decimal.Decimal      `json:"income"`
		Expense decimal.Decimal      `json:"expense"`
		Balance decimal.Decimal      `json:"balance"`
	}

	// BudgetStatus compares a category's spending goal with what was
	// actually spent in the reference month. Spent is never clamped;
	// Progress is, so gauges cannot overflow.
	BudgetStatus struct {
		Category string          `json:"category"`
		Goal     decimal.Decimal `json:"goal"`
		Spent    decimal.Decimal `json:"spent"`
		Progress float64         `json:"progress"`
	}

	// Overview holds the dashboard header totals over the full list.
	Overview struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}
)

func (g Granularity) Validate() error {
	switch g {
	case Daily, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidGranularity
	}
}

// Key derives the bucket key for a point in time: daily "2006-01-02",
// monthly "2006-01", yearly "2006".
func (g Granularity) Key(t time.Time) string {
	switch g {
	case Daily:
		return t.Format("2006-01-02")
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}

func (s SortBy) Validate() error {
	switch s {
	case SortByDate, SortByAmount, SortByDescription:
		return nil
	default:
		return ErrInvalidSort
	}
}

func (o SortOrder) Validate() error {
	switch o {
	case Ascending, Descending:
		return nil
	default:
		return ErrInvalidSort
	}
}

// GroupByPeriod partitions transactions into time buckets and computes the
// per-bucket BaseCurrency income and expense sums. Every transaction lands
// in exactly one bucket. Buckets come back ordered by key descending (most
// recent period first); inside a bucket transactions honor the requested
// sort, and the sort is stable so equal keys keep their input order.
func GroupByPeriod(txns []Transaction, g Granularity, by SortBy, order SortOrder) []Bucket {
	grouped := make(map[string]*Bucket)
	for _, t := range txns {
		key := g.Key(t.Date)
		b, ok := grouped[key]
		if !ok {
			b = &Bucket{
				Key:     key,
				Date:    t.Date,
				Income:  decimal.Zero,
				Expense: decimal.Zero,
			}
			grouped[key] = b
		}
		b.Transactions = append(b.Transactions, t)
		if t.Currency != BaseCurrency {
			continue
		}
		switch t.Type {
		case Income:
			b.Income = b.Income.Add(t.Amount)
		case Expense:
			b.Expense = b.Expense.Add(t.Amount)
		}
	}

	buckets := make([]Bucket, 0, len(grouped))
	for _, b := range grouped {
		sortTransactions(b.Transactions, by, order)
		buckets = append(buckets, *b)
	}

	// Keys are zero-padded, so lexicographic order is chronological.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key > buckets[j].Key
	})
	return buckets
}

func sortTransactions(txns []Transaction, by SortBy, order SortOrder) {
	less := func(a, b Transaction) bool {
		switch by {
		case SortByAmount:
			return a.Amount.LessThan(b.Amount)
		case SortByDescription:
			return strings.Compare(a.Description, b.Description) < 0
		default:
			return a.Date.Before(b.Date)
		}
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if order == Descending {
			return less(txns[j], txns[i])
		}
		return less(txns[i], txns[j])
	})
}

// CategoryBreakdown sums BaseCurrency expenses grouped by category. The
// caller applies any time window before invoking; this only filters by type
// and currency. Categories come back sorted by total descending, ties by
// name, plus the grand total across all of them.
func CategoryBreakdown(txns []Transaction) Breakdown {
	byCategory := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != Expense || t.Currency != BaseCurrency {
			continue
		}
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
	}

	out := Breakdown{Total: decimal.Zero}
	for name, total := range byCategory {
		out.Categories = append(out.Categories, CategoryTotal{Category: name, Total: total})
		out.Total = out.Total.Add(total)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})
	return out
}

// Percent returns a category total as a percentage of the breakdown's grand
// total. A zero grand total yields 0, never a division error.
func (b Breakdown) Percent(total decimal.Decimal) float64 {
	if b.Total.IsZero() {
		return 0
	}
	f, _ := total.Div(b.Total).Float64()
	return f * 100
}

// FilterMonth keeps the transactions dated inside a single calendar month.
func FilterMonth(txns []Transaction, year int, month time.Month) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if t.Date.Year() == year && t.Date.Month() == month {
			out = append(out, t)
		}
	}
	return out
}

// CalendarMonth rolls a single displayed month up by calendar day. Sums are
// BaseCurrency-only; the per-day lists keep every currency for drill-down.
func CalendarMonth(txns []Transaction, year int, month time.Month) CalendarSummary {
	out := CalendarSummary{
		Days:    make(map[string]DayRollup),
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, t := range FilterMonth(txns, year, month) {
		key := t.Date.Format("2006-01-02")
		day, ok := out.Days[key]
		if !ok {
			day = DayRollup{Income: decimal.Zero, Expense: decimal.Zero}
		}
		day.Transactions = append(day.Transactions, t)
		if t.Currency == BaseCurrency {
			switch t.Type {
			case Income:
				day.Income = day.Income.Add(t.Amount)
				out.Income = out.Income.Add(t.Amount)
			case Expense:
				day.Expense = day.Expense.Add(t.Amount)
				out.Expense = out.Expense.Add(t.Amount)
			}
		}
		out.Days[key] = day
	}
	out.Balance = out.Income.Sub(out.Expense)
	return out
}

// BudgetRollup derives spent-vs-goal for each budget category over the
// calendar month containing ref. Spent is recomputed from the transaction
// list on every call; it is never persisted.
func BudgetRollup(txns []Transaction, goals map[string]decimal.Decimal, ref time.Time) []BudgetStatus {
	spent := make(map[string]decimal.Decimal, len(goals))
	for _, t := range txns {
		if t.Type != Expense || t.Currency != BaseCurrency {
			continue
		}
		if t.Date.Year() != ref.Year() || t.Date.Month() != ref.Month() {
			continue
		}
		if _, ok := goals[t.Category]; !ok {
			continue
		}
		spent[t.Category] = spent[t.Category].Add(t.Amount)
	}

	out := make([]BudgetStatus, 0, len(goals))
	for name, goal := range goals {
		s := spent[name]
		progress := 0.0
		if goal.IsPositive() {
			progress, _ = s.Div(goal).Float64()
			if progress > 1 {
				progress = 1
			}
			if progress < 0 {
				progress = 0
			}
		}
		out = append(out, BudgetStatus{Category: name, Goal: goal, Spent: s, Progress: progress})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Totals computes the dashboard header sums over the full list.
func Totals(txns []Transaction) Overview {
	out := Overview{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txns {
		if t.Currency != BaseCurrency {
			continue
		}
		switch t.Type {
		case Income:
			out.Income = out.Income.Add(t.Amount)
		case Expense:
			out.Expense = out.Expense.Add(t.Amount)
		}
	}
	out.Balance = out.Income.Sub(out.Expense)
	return out
}
