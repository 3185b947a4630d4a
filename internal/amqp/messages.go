package amqp

import (
	"encoding/json"
	"time"
)

// ExportMessage asks the worker to mirror one transaction to the external
// spreadsheet. It carries only the transaction id; the worker reads the
// current record from the snapshot store so a stale queue never exports
// stale fields.
type ExportMessage struct {
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewExportMessage creates an export message for a transaction id
func NewExportMessage(transactionID string) *ExportMessage {
	return &ExportMessage{
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportMessageFromJSON creates a message from JSON bytes
func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
