// Package store holds the authoritative in-memory transaction collection,
// the category registry and the budget goals for the current session.
//
// Every mutation snapshots the affected collection through the injected
// Snapshotter. Durability is best-effort: a failed snapshot is logged and
// the in-memory mutation stands.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"financeflow/internal/core"
)

// Snapshotter is the outbound port for durable snapshots. Implementations
// persist each collection under its own fixed key; there is no atomicity
// guarantee across keys.
type Snapshotter interface {
	SaveTransactions(ctx context.Context, txns []core.Transaction) error
	SaveCategories(ctx context.Context, categories []string) error
	SaveBudgets(ctx context.Context, goals map[string]decimal.Decimal) error

	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	LoadCategories(ctx context.Context) ([]string, error)
	LoadBudgets(ctx context.Context) (map[string]decimal.Decimal, error)
}

var (
	// ErrNotFound reports that an id or name addressed nothing in the
	// store, so nothing changed.
	ErrNotFound = errors.New("not found")

	ErrEmptyCategory  = errors.New("category name is empty")
	ErrCategoryExists = errors.New("category already exists")
	ErrInvalidGoal    = errors.New("budget goal must be positive")
)

type Store struct {
	mu    sync.Mutex
	snaps Snapshotter

	txns    []core.Transaction
	cats    []string
	budgets map[string]decimal.Decimal
}

func New(snaps Snapshotter) *Store {
	return &Store{
		snaps:   snaps,
		budgets: make(map[string]decimal.Decimal),
	}
}

// Load restores all collections from the snapshot store. An empty store is
// not an error; corrupt or unreadable snapshots are.
func (s *Store) Load(ctx context.Context) error {
	txns, err := s.snaps.LoadTransactions(ctx)
	if err != nil {
		return err
	}
	cats, err := s.snaps.LoadCategories(ctx)
	if err != nil {
		return err
	}
	budgets, err := s.snaps.LoadBudgets(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = txns
	s.cats = cats
	sort.Strings(s.cats)
	if budgets == nil {
		budgets = make(map[string]decimal.Decimal)
	}
	s.budgets = budgets

	slog.InfoContext(ctx, "Store loaded from snapshots",
		"transactions", len(s.txns),
		"categories", len(s.cats),
		"budgets", len(s.budgets))
	return nil
}

// Transactions returns a copy of the collection in insertion order
// (most recent first). Display order is the aggregation engine's concern.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txns...)
}

// Search returns the transactions whose description contains q,
// case-insensitively. An empty q returns everything.
func (s *Store) Search(q string) []core.Transaction {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.Transactions()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txns {
		if strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns a copy of the registry, sorted lexicographically.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...)
}

// BudgetGoals returns a copy of the per-category goals.
func (s *Store) BudgetGoals() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(s.budgets))
	for k, v := range s.budgets {
		out[k] = v
	}
	return out
}

// AddTransaction validates data, assigns a fresh id and prepends the record.
func (s *Store) AddTransaction(ctx context.Context, data core.Transaction) (core.Transaction, error) {
	if err := data.Validate(); err != nil {
		return core.Transaction{}, err
	}
	data.ID = uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append([]core.Transaction{data}, s.txns...)
	s.snapshotTransactions(ctx)

	slog.InfoContext(ctx, "Transaction added",
		"id", data.ID,
		"type", string(data.Type),
		"amount", data.Amount.String(),
		"currency", data.Currency,
		"category", data.Category)
	return data, nil
}

// EditTransaction replaces every field of the record with the given id,
// keeping the id. Returns ErrNotFound when the id addresses nothing; the
// caller decides whether that matters.
func (s *Store) EditTransaction(ctx context.Context, id string, data core.Transaction) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].ID != id {
			continue
		}
		data.ID = id
		s.txns[i] = data
		s.snapshotTransactions(ctx)
		slog.InfoContext(ctx, "Transaction updated", "id", id)
		return nil
	}
	return ErrNotFound
}

// DeleteTransaction removes one record by id.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txns {
		if s.txns[i].ID != id {
			continue
		}
		s.txns = append(s.txns[:i], s.txns[i+1:]...)
		s.snapshotTransactions(ctx)
		slog.InfoContext(ctx, "Transaction deleted", "id", id)
		return nil
	}
	return ErrNotFound
}

// DeleteTransactions removes every record whose id is in ids and reports
// how many were removed. Unknown ids are ignored; the rest of the store is
// untouched.
func (s *Store) DeleteTransactions(ctx context.Context, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txns[:0]
	removed := 0
	for _, t := range s.txns {
		if _, ok := drop[t.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.txns = kept
	if removed > 0 {
		s.snapshotTransactions(ctx)
	}
	slog.InfoContext(ctx, "Transactions bulk deleted", "requested", len(ids), "removed", removed)
	return removed
}

// AddCategory trims and inserts a category name, keeping the registry
// sorted. Empty names and exact duplicates are rejected.
func (s *Store) AddCategory(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCategory(name) {
		return "", ErrCategoryExists
	}
	s.cats = append(s.cats, name)
	sort.Strings(s.cats)
	s.snapshotCategories(ctx)

	slog.InfoContext(ctx, "Category added", "category", name)
	return name, nil
}

// RenameCategory renames a registry entry and cascades the rename to every
// transaction tagged with the old name. Renaming to an existing different
// name is rejected; renaming something that is not in the registry reports
// ErrNotFound, which also makes a repeated identical rename a no-op.
func (s *Store) RenameCategory(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCategory(oldName) {
		return ErrNotFound
	}
	if newName != oldName && s.hasCategory(newName) {
		return ErrCategoryExists
	}

	for i, c := range s.cats {
		if c == oldName {
			s.cats[i] = newName
		}
	}
	sort.Strings(s.cats)

	cascaded := 0
	for i := range s.txns {
		if s.txns[i].Category == oldName {
			s.txns[i].Category = newName
			cascaded++
		}
	}

	s.snapshotCategories(ctx)
	if cascaded > 0 {
		s.snapshotTransactions(ctx)
	}
	slog.InfoContext(ctx, "Category renamed",
		"old", oldName, "new", newName, "transactions_updated", cascaded)
	return nil
}

// DeleteCategory removes a name from the registry only. Transactions keep
// their now-dangling category string; that is intentional and preserved for
// display.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cats {
		if c != name {
			continue
		}
		s.cats = append(s.cats[:i], s.cats[i+1:]...)
		s.snapshotCategories(ctx)
		slog.InfoContext(ctx, "Category deleted", "category", name)
		return nil
	}
	return ErrNotFound
}

// SetBudgetGoal sets or replaces the monthly spending goal for a category.
// Goals are always positive; spent-vs-goal is derived by the aggregation
// engine, never stored here.
func (s *Store) SetBudgetGoal(ctx context.Context, category string, goal decimal.Decimal) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrEmptyCategory
	}
	if !goal.IsPositive() {
		return ErrInvalidGoal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[category] = goal
	s.snapshotBudgets(ctx)
	slog.InfoContext(ctx, "Budget goal set", "category", category, "goal", goal.String())
	return nil
}

// DeleteBudgetGoal removes a category's goal.
func (s *Store) DeleteBudgetGoal(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[category]; !ok {
		return ErrNotFound
	}
	delete(s.budgets, category)
	s.snapshotBudgets(ctx)
	slog.InfoContext(ctx, "Budget goal deleted", "category", category)
	return nil
}

func (s *Store) hasCategory(name string) bool {
	for _, c := range s.cats {
		if c == name {
			return true
		}
	}
	return false
}

// Snapshot helpers run with the store lock held; they copy so the
// snapshotter never sees live slices.

func (s *Store) snapshotTransactions(ctx context.Context) {
	cp := append([]core.Transaction(nil), s.txns...)
	if err := s.snaps.SaveTransactions(ctx, cp); err != nil {
		slog.ErrorContext(ctx, "Transaction snapshot failed", "error", err, "count", len(cp))
	}
}

func (s *Store) snapshotCategories(ctx context.Context) {
	cp := append([]string(nil), s.cats...)
	if err := s.snaps.SaveCategories(ctx, cp); err != nil {
		slog.ErrorContext(ctx, "Category snapshot failed", "error", err, "count", len(cp))
	}
}

func (s *Store) snapshotBudgets(ctx context.Context) {
	cp := make(map[string]decimal.Decimal, len(s.budgets))
	for k, v := range s.budgets {
		cp[k] = v
	}
	if err := s.snaps.SaveBudgets(ctx, cp); err != nil {
		slog.ErrorContext(ctx, "Budget snapshot failed", "error", err, "count", len(cp))
	}
}
