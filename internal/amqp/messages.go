package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budget/internal/core"
)

// TransactionAddedMessage announces a transaction committed by the store.
// It carries the full transaction so consumers never read the store back.
type TransactionAddedMessage struct {
	Transaction core.Transaction `json:"transaction"`
	Version     uint64           `json:"version"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionAddedMessage(tx core.Transaction, version uint64) *TransactionAddedMessage {
	return &TransactionAddedMessage{
		Transaction: tx,
		Version:     version,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *TransactionAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionAddedMessageFromJSON decodes a message and rejects payloads
// without a transaction id.
func TransactionAddedMessageFromJSON(data []byte) (*TransactionAddedMessage, error) {
	var msg TransactionAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("message has no transaction id")
	}
	return &msg, nil
}
