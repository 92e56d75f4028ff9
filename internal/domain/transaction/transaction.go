package transaction

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// txIDCounter is an atomic counter for generating sequential transaction numbers
var txIDCounter uint64

// Kind represents the type of statement a transaction runs
type Kind string

const (
	KindRead  Kind = "READ"
	KindWrite Kind = "WRITE"
)

// Transaction is the context of one statement: a query executed by the
// engine or a single table mutation committed to disk
type Transaction struct {
	ID        string    // Unique identifier (UUID) used in logs, events and journal entries
	TxID      uint64    // Process-local sequence number
	Kind      Kind      // Read or write
	Active    bool      // Whether transaction is currently active
	StartTime time.Time // When the transaction began
}

// NewTransaction creates a new transaction with a unique ID
func NewTransaction(kind Kind) *Transaction {
	return &Transaction{
		ID:        uuid.New().String(),
		TxID:      atomic.AddUint64(&txIDCounter, 1),
		Kind:      kind,
		Active:    true,
		StartTime: time.Now(),
	}
}

// Close marks the transaction as inactive
func (tx *Transaction) Close() {
	tx.Active = false
}

// Elapsed returns the time since the transaction began
func (tx *Transaction) Elapsed() time.Duration {
	return time.Since(tx.StartTime)
}
