package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Snapshot keys. Each collection lives under its own key; there is no
// cross-key transaction, matching the store's best-effort durability.
const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
	KeyBudgets      = "budgets"
)

// schemaVersion is bumped whenever the shape of a persisted collection
// changes incompatibly.
const schemaVersion = 1

// ErrSchemaVersion reports a snapshot written by an incompatible version.
// Callers treat it as corruption rather than guessing at the old shape.
var ErrSchemaVersion = errors.New("unsupported snapshot schema version")

// envelope wraps every persisted collection so snapshots are
// self-describing on disk.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	SavedAt       time.Time       `json:"saved_at"`
	Data          json.RawMessage `json:"data"`
}

func sealEnvelope(data any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot data: %w", err)
	}
	blob, err := json.Marshal(envelope{
		SchemaVersion: schemaVersion,
		SavedAt:       now.UTC(),
		Data:          raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot envelope: %w", err)
	}
	return blob, nil
}

func openEnvelope(blob []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return fmt.Errorf("unmarshal snapshot envelope: %w", err)
	}
	if env.SchemaVersion != schemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, env.SchemaVersion, schemaVersion)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return nil
}
