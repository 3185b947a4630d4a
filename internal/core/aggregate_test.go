package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(id string, date time.Time, amount string, typ TransactionType, category, currency string) Transaction {
	return Transaction{
		ID:          id,
		Date:        date,
		Description: "desc " + id,
		Amount:      usd(amount),
		Type:        typ,
		Category:    category,
		Account:     Cash,
		Currency:    currency,
	}
}

// The worked example: two USD transactions on July 1st and one EUR expense on
// July 2nd. The EUR amount appears in its bucket's list but never in a sum.
func sampleJuly() []Transaction {
	return []Transaction{
		tx("1", day(2024, 7, 1), "100", Expense, "Food", "USD"),
		tx("2", day(2024, 7, 1), "50", Income, "Salary", "USD"),
		tx("3", day(2024, 7, 2), "30", Expense, "Food", "EUR"),
	}
}

func TestGroupByPeriodDaily(t *testing.T) {
	buckets := GroupByPeriod(sampleJuly(), Daily, SortByDate, Ascending)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	// Most recent period first.
	if buckets[0].Key != "2024-07-02" || buckets[1].Key != "2024-07-01" {
		t.Fatalf("unexpected bucket order: %s, %s", buckets[0].Key, buckets[1].Key)
	}

	second := buckets[0]
	if len(second.Transactions) != 1 || second.Transactions[0].ID != "3" {
		t.Fatalf("2024-07-02 should hold only the EUR transaction")
	}
	if !second.Income.IsZero() || !second.Expense.IsZero() {
		t.Fatalf("EUR must not contribute to sums: income=%s expense=%s", second.Income, second.Expense)
	}

	first := buckets[1]
	if !first.Expense.Equal(usd("100")) || !first.Income.Equal(usd("50")) {
		t.Fatalf("2024-07-01 sums wrong: income=%s expense=%s", first.Income, first.Expense)
	}
	if len(first.Transactions) != 2 {
		t.Fatalf("2024-07-01 should hold 2 transactions, got %d", len(first.Transactions))
	}
}

func TestGroupByPeriodPartitions(t *testing.T) {
	input := []Transaction{
		tx("a", day(2023, 1, 15), "1", Expense, "Food", "USD"),
		tx("b", day(2023, 1, 20), "2", Income, "Salary", "USD"),
		tx("c", day(2023, 2, 1), "3", Expense, "Food", "EUR"),
		tx("d", day(2024, 2, 1), "4", Transfer, "Other", "USD"),
		tx("e", day(2024, 12, 31), "5", Expense, "Food", "USD"),
	}
	for _, g := range []Granularity{Daily, Monthly, Yearly} {
		buckets := GroupByPeriod(input, g, SortByDate, Ascending)
		seen := map[string]int{}
		for _, b := range buckets {
			for _, tr := range b.Transactions {
				seen[tr.ID]++
				if g.Key(tr.Date) != b.Key {
					t.Fatalf("%s: transaction %s in wrong bucket %s", g, tr.ID, b.Key)
				}
			}
		}
		if len(seen) != len(input) {
			t.Fatalf("%s: expected %d distinct ids, got %d", g, len(input), len(seen))
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("%s: transaction %s appeared %d times", g, id, n)
			}
		}
	}
}

func TestGroupByPeriodTransferExcludedFromSums(t *testing.T) {
	buckets := GroupByPeriod([]Transaction{
		tx("t", day(2024, 3, 3), "500", Transfer, "Other", "USD"),
	}, Monthly, SortByDate, Ascending)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if !b.Income.IsZero() || !b.Expense.IsZero() {
		t.Fatalf("transfers must not contribute to sums")
	}
	if len(b.Transactions) != 1 {
		t.Fatalf("transfer must still appear in the bucket list")
	}
}

func TestGroupByPeriodEmptyInput(t *testing.T) {
	if got := GroupByPeriod(nil, Daily, SortByDate, Descending); len(got) != 0 {
		t.Fatalf("empty input should yield no buckets, got %d", len(got))
	}
}

func TestInBucketSort(t *testing.T) {
	base := day(2024, 5, 10)
	input := []Transaction{
		tx("a", base.Add(3*time.Hour), "20", Expense, "Food", "USD"),
		tx("b", base.Add(1*time.Hour), "50", Expense, "Food", "USD"),
		tx("c", base.Add(2*time.Hour), "5", Expense, "Food", "USD"),
	}

	cases := []struct {
		by    SortBy
		order SortOrder
		want  []string
	}{
		{SortByDate, Ascending, []string{"b", "c", "a"}},
		{SortByDate, Descending, []string{"a", "c", "b"}},
		{SortByAmount, Ascending, []string{"c", "a", "b"}},
		{SortByAmount, Descending, []string{"b", "a", "c"}},
		{SortByDescription, Ascending, []string{"a", "b", "c"}},
		{SortByDescription, Descending, []string{"c", "b", "a"}},
	}
	for _, tc := range cases {
		buckets := GroupByPeriod(input, Daily, tc.by, tc.order)
		if len(buckets) != 1 {
			t.Fatalf("%s/%s: expected 1 bucket", tc.by, tc.order)
		}
		for i, want := range tc.want {
			if got := buckets[0].Transactions[i].ID; got != want {
				t.Fatalf("%s/%s: position %d = %s, want %s", tc.by, tc.order, i, got, want)
			}
		}
	}
}

func TestInBucketSortStability(t *testing.T) {
	base := day(2024, 5, 10)
	// All amounts equal: relative input order must survive both directions.
	input := []Transaction{
		tx("first", base, "10", Expense, "Food", "USD"),
		tx("second", base, "10", Expense, "Food", "USD"),
		tx("third", base, "10", Expense, "Food", "USD"),
	}
	for _, order := range []SortOrder{Ascending, Descending} {
		buckets := GroupByPeriod(input, Daily, SortByAmount, order)
		got := buckets[0].Transactions
		if got[0].ID != "first" || got[1].ID != "second" || got[2].ID != "third" {
			t.Fatalf("order %s broke stability: %s %s %s", order, got[0].ID, got[1].ID, got[2].ID)
		}
	}
}

func TestCategoryBreakdown(t *testing.T) {
	b := CategoryBreakdown(sampleJuly())
	if len(b.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(b.Categories))
	}
	if b.Categories[0].Category != "Food" || !b.Categories[0].Total.Equal(usd("100")) {
		t.Fatalf("Food should total 100 (EUR excluded), got %s=%s",
			b.Categories[0].Category, b.Categories[0].Total)
	}
	if !b.Total.Equal(usd("100")) {
		t.Fatalf("grand total should be 100, got %s", b.Total)
	}
}

func TestCategoryBreakdownSortedDescending(t *testing.T) {
	b := CategoryBreakdown([]Transaction{
		tx("1", day(2024, 7, 1), "20", Expense, "Transport", "USD"),
		tx("2", day(2024, 7, 1), "80", Expense, "Food", "USD"),
		tx("3", day(2024, 7, 2), "30", Expense, "Food", "USD"),
		tx("4", day(2024, 7, 2), "40", Expense, "Shopping", "USD"),
		tx("5", day(2024, 7, 2), "999", Income, "Salary", "USD"),
	})
	want := []string{"Food", "Shopping", "Transport"}
	if len(b.Categories) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(b.Categories))
	}
	for i, name := range want {
		if b.Categories[i].Category != name {
			t.Fatalf("position %d = %s, want %s", i, b.Categories[i].Category, name)
		}
	}
	if !b.Total.Equal(usd("170")) {
		t.Fatalf("grand total should be 170, got %s", b.Total)
	}
}

func TestBreakdownPercentZeroTotal(t *testing.T) {
	var b Breakdown
	b.Total = decimal.Zero
	if got := b.Percent(usd("10")); got != 0 {
		t.Fatalf("percent of zero total should be 0, got %f", got)
	}
}

func TestBreakdownPercent(t *testing.T) {
	b := Breakdown{Total: usd("200")}
	if got := b.Percent(usd("50")); got != 25 {
		t.Fatalf("expected 25%%, got %f", got)
	}
}

func TestCalendarMonth(t *testing.T) {
	txns := append(sampleJuly(),
		tx("4", day(2024, 6, 30), "999", Expense, "Food", "USD"), // previous month
	)
	cal := CalendarMonth(txns, 2024, time.July)

	if len(cal.Days) != 2 {
		t.Fatalf("expected 2 days with activity, got %d", len(cal.Days))
	}
	d1 := cal.Days["2024-07-01"]
	if !d1.Income.Equal(usd("50")) || !d1.Expense.Equal(usd("100")) {
		t.Fatalf("2024-07-01 rollup wrong: income=%s expense=%s", d1.Income, d1.Expense)
	}
	d2 := cal.Days["2024-07-02"]
	if !d2.Income.IsZero() || !d2.Expense.IsZero() {
		t.Fatalf("EUR-only day must have zero sums")
	}
	if len(d2.Transactions) != 1 {
		t.Fatalf("EUR transaction must appear in the day list")
	}

	// Missing key is an empty day, not an error.
	empty, ok := cal.Days["2024-07-15"]
	if ok || len(empty.Transactions) != 0 {
		t.Fatalf("day without transactions must be absent from the map")
	}

	if !cal.Income.Equal(usd("50")) || !cal.Expense.Equal(usd("100")) {
		t.Fatalf("month totals wrong: income=%s expense=%s", cal.Income, cal.Expense)
	}
	if !cal.Balance.Equal(usd("-50")) {
		t.Fatalf("balance should be -50, got %s", cal.Balance)
	}
}

func TestBudgetRollup(t *testing.T) {
	ref := day(2024, 7, 15)
	goals := map[string]decimal.Decimal{
		"Food":      usd("200"),
		"Transport": usd("50"),
	}
	txns := []Transaction{
		tx("1", day(2024, 7, 1), "100", Expense, "Food", "USD"),
		tx("2", day(2024, 7, 3), "30", Expense, "Food", "EUR"),  // wrong currency
		tx("3", day(2024, 6, 28), "70", Expense, "Food", "USD"), // wrong month
		tx("4", day(2024, 7, 5), "80", Expense, "Transport", "USD"),
		tx("5", day(2024, 7, 5), "10", Income, "Food", "USD"), // wrong type
	}

	statuses := BudgetRollup(txns, goals, ref)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 budget statuses, got %d", len(statuses))
	}

	food := statuses[0]
	if food.Category != "Food" || !food.Spent.Equal(usd("100")) {
		t.Fatalf("Food spent should be 100, got %s=%s", food.Category, food.Spent)
	}
	if food.Progress != 0.5 {
		t.Fatalf("Food progress should be 0.5, got %f", food.Progress)
	}

	transport := statuses[1]
	if !transport.Spent.Equal(usd("80")) {
		t.Fatalf("Transport spent should be 80 (raw, unclamped), got %s", transport.Spent)
	}
	if transport.Progress != 1 {
		t.Fatalf("Transport progress must clamp to 1, got %f", transport.Progress)
	}
}

func TestBudgetRollupNoSpending(t *testing.T) {
	goals := map[string]decimal.Decimal{"Food": usd("100")}
	statuses := BudgetRollup(nil, goals, day(2024, 7, 1))
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if !statuses[0].Spent.IsZero() || statuses[0].Progress != 0 {
		t.Fatalf("no matching transactions must yield spent=0 progress=0, got %s/%f",
			statuses[0].Spent, statuses[0].Progress)
	}
}

func TestTotals(t *testing.T) {
	got := Totals(sampleJuly())
	if !got.Income.Equal(usd("50")) || !got.Expense.Equal(usd("100")) {
		t.Fatalf("totals wrong: income=%s expense=%s", got.Income, got.Expense)
	}
	if !got.Balance.Equal(usd("-50")) {
		t.Fatalf("balance should be -50, got %s", got.Balance)
	}
}

func TestGranularityKey(t *testing.T) {
	d := time.Date(2024, 7, 9, 18, 30, 0, 0, time.UTC)
	cases := []struct {
		g    Granularity
		want string
	}{
		{Daily, "2024-07-09"},
		{Monthly, "2024-07"},
		{Yearly, "2024"},
	}
	for _, tc := range cases {
		if got := tc.g.Key(d); got != tc.want {
			t.Fatalf("%s.Key = %s, want %s", tc.g, got, tc.want)
		}
	}
}
