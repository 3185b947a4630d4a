// Package storage persists store snapshots as versioned JSON blobs in
// SQLite. One row per collection, keyed by a fixed name; the newest write
// wins.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"financeflow/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) put(ctx context.Context, key string, data any) error {
	blob, err := sealEnvelope(data, time.Now())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	return nil
}

// get unmarshals the snapshot under key into out. A missing row leaves out
// untouched and returns found=false.
func (s *SQLiteStore) get(ctx context.Context, key string, out any) (bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM snapshots WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot %q: %w", key, err)
	}
	if err := openEnvelope(blob, out); err != nil {
		return false, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) SaveTransactions(ctx context.Context, txns []core.Transaction) error {
	return s.put(ctx, KeyTransactions, txns)
}

func (s *SQLiteStore) SaveCategories(ctx context.Context, categories []string) error {
	return s.put(ctx, KeyCategories, categories)
}

func (s *SQLiteStore) SaveBudgets(ctx context.Context, goals map[string]decimal.Decimal) error {
	return s.put(ctx, KeyBudgets, goals)
}

func (s *SQLiteStore) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	var txns []core.Transaction
	if _, err := s.get(ctx, KeyTransactions, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *SQLiteStore) LoadCategories(ctx context.Context) ([]string, error) {
	var cats []string
	if _, err := s.get(ctx, KeyCategories, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (s *SQLiteStore) LoadBudgets(ctx context.Context) (map[string]decimal.Decimal, error) {
	var goals map[string]decimal.Decimal
	if _, err := s.get(ctx, KeyBudgets, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}
