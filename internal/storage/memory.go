package storage

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"financeflow/internal/core"
)

// MemoryStore keeps snapshots in process memory. It goes through the same
// envelope codec as the SQLite store so both backends exercise the same
// serialization, and serves local runs and tests that want no database file.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) put(key string, data any) error {
	blob, err := sealEnvelope(data, time.Now())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob
	return nil
}

func (m *MemoryStore) get(key string, out any) error {
	m.mu.RLock()
	blob, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return openEnvelope(blob, out)
}

func (m *MemoryStore) SaveTransactions(_ context.Context, txns []core.Transaction) error {
	return m.put(KeyTransactions, txns)
}

func (m *MemoryStore) SaveCategories(_ context.Context, categories []string) error {
	return m.put(KeyCategories, categories)
}

func (m *MemoryStore) SaveBudgets(_ context.Context, goals map[string]decimal.Decimal) error {
	return m.put(KeyBudgets, goals)
}

func (m *MemoryStore) LoadTransactions(context.Context) ([]core.Transaction, error) {
	var txns []core.Transaction
	if err := m.get(KeyTransactions, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

func (m *MemoryStore) LoadCategories(context.Context) ([]string, error) {
	var cats []string
	if err := m.get(KeyCategories, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (m *MemoryStore) LoadBudgets(context.Context) (map[string]decimal.Decimal, error) {
	var goals map[string]decimal.Decimal
	if err := m.get(KeyBudgets, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}
