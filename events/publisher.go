// Package events defines the outbound event contract for committed ledger
// entries. The engine publishes after commit, best-effort; a lost event
// never fails or rolls back the ledger write.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopicEntryCommitted carries one event per committed ledger entry.
const TopicEntryCommitted = "ledger.entry_committed"

// EntryCommitted is emitted after a ledger entry has been durably committed.
type EntryCommitted struct {
	EntryID        string          `json:"entry_id"`
	AccountCode    string          `json:"account_code"`
	AWBNo          string          `json:"awb_no,omitempty"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	AccountLevel   bool            `json:"account_level"`
	SourceRef      string          `json:"source_ref,omitempty"`
	ReceiptNo      int64           `json:"receipt_no,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers (reporting, statements,
// carrier integrations).
type Publisher interface {
	Publish(topic string, event any) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
