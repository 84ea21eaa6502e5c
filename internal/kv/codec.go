package kv

import (
	"bytes"
	"encoding/json"
	"fmt"

	"budget/internal/core"
)

// EncodeTransactions serializes the collection as a JSON array, preserving
// order. A nil collection encodes as an empty array.
func EncodeTransactions(txs []core.Transaction) ([]byte, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return nil, fmt.Errorf("encode transactions: %w", err)
	}
	return data, nil
}

// DecodeTransactions parses a serialized collection. Records repeating an
// earlier id are dropped so the result stays unique by id.
func DecodeTransactions(data []byte) ([]core.Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []core.Transaction{}, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	seen := make(map[string]struct{}, len(txs))
	out := txs[:0]
	for _, tx := range txs {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}
	return out, nil
}
