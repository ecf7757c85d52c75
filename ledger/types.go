/*
Package ledger provides the financial core of the freight-forwarding platform.

PURPOSE:
  Every customer account carries one running balance that must always equal
  the chronological sum of signed effects from shipment bills, payments,
  credit/debit notes, and manual adjustments. This package owns that balance:
  the rules that derive each transaction's signed delta, the serialized
  mutation of the balance, and the immutable entry written for every change.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: the balance owner, keyed by a unique account code
  - Entry: one immutable ledger record with an opening/closing snapshot
  - TxKind: the closed set of transaction kinds the engine understands
  - ReceiptSubType: the closed set of payment/temp-entry sub-types
  - SequenceFamily: document-number families (payment vs temp-credit receipts)

DESIGN PRINCIPLES:
  1. Immutability: entries are never edited; corrections create new entries
  2. Precision: decimal.Decimal everywhere, never float64
  3. Dual bookkeeping: account-level entries move Account.CurrentBalance,
     AWB-scoped note entries chain per waybill and never touch the account
  4. Auditability: every entry carries its source document reference

SEE ALSO:
  - rules.go: signed-delta derivation per transaction kind
  - mutator.go: serialized balance mutation
  - engine.go: the operations exposed to the surrounding system
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountCode string
type AWBNo string
type EntryID string

// =============================================================================
// ACCOUNT - Balance owner
// =============================================================================

// AccountMode gates which transaction families are legal for an account.
// Normal accounts settle via open-credit payments; temp accounts are
// pre-funded through a separate entry family.
type AccountMode string

const (
	ModeNormal AccountMode = "normal"
	ModeTemp   AccountMode = "temp"
)

// GuardPolicy selects how the credit limit counter behaves for a charge.
//
//   GuardNone:       the limit counter is not consulted or moved.
//   GuardStrict:     the charge is rejected when it exceeds the remaining
//                    limit; on success the limit moves opposite the balance.
//   GuardPermissive: the charge always applies; any prior credit hold on the
//                    account is released once the charge succeeds.
//
// The zero value means "unset": operations fall back to the account's
// GuardDefault, and an unset default behaves as GuardNone.
type GuardPolicy string

const (
	GuardNone       GuardPolicy = "none"
	GuardStrict     GuardPolicy = "strict"
	GuardPermissive GuardPolicy = "permissive"
)

// Account holds the single authoritative running balance for a customer.
// CurrentBalance is mutated ONLY by the BalanceMutator, never by producers.
type Account struct {
	Code           AccountCode
	Name           string
	Mode           AccountMode
	CurrentBalance decimal.Decimal
	CreditLimit    decimal.Decimal
	CreditHold     bool // set when a charge was held for exceeding the limit
	GuardDefault   GuardPolicy
	Version        int64 // optimistic concurrency token, bumped on every update
	CreatedAt      time.Time
}

// =============================================================================
// TRANSACTION KINDS
// =============================================================================

type TxKind string

const (
	TxSale          TxKind = "sale"           // shipment billed charge
	TxSaleAmendment TxKind = "sale_amendment" // bill edited: delta = new - old
	TxPayment       TxKind = "payment"        // receipt against a normal account
	TxTempCredit    TxKind = "temp_credit"    // pre-funding entry on a temp account
	TxCreditNote    TxKind = "credit_note"    // AWB-scoped correction, decreases
	TxDebitNote     TxKind = "debit_note"     // AWB-scoped correction, increases
	TxAdjustment    TxKind = "adjustment"     // manual debit/credit override
)

// accountLevel reports whether entries of this kind move the account's
// authoritative balance. Note kinds chain per AWB instead.
func (k TxKind) accountLevel() bool {
	return k != TxCreditNote && k != TxDebitNote
}

// =============================================================================
// RECEIPT SUB-TYPES - Closed set; unrecognized values are rejected
// =============================================================================

type ReceiptSubType string

const (
	SubTypeReturn       ReceiptSubType = "Return"
	SubTypeGeneralEntry ReceiptSubType = "General Entry"
	SubTypeOther        ReceiptSubType = "Other"
	SubTypeTDS          ReceiptSubType = "TDS"
	SubTypeBadDebts     ReceiptSubType = "Bad Debts"
)

// Known reports whether the sub-type is part of the closed set.
func (s ReceiptSubType) Known() bool {
	switch s {
	case SubTypeReturn, SubTypeGeneralEntry, SubTypeOther, SubTypeTDS, SubTypeBadDebts:
		return true
	}
	return false
}

// =============================================================================
// SEQUENCE FAMILIES - Human-facing document number streams
// =============================================================================

type SequenceFamily string

const (
	FamilyPayment    SequenceFamily = "payment"
	FamilyTempCredit SequenceFamily = "temp_credit"
)

// =============================================================================
// ENTRY - One immutable record per balance-affecting event
// =============================================================================

// Entry is written exactly once per transaction and never updated. It is
// deleted only as a consequence of deleting its parent source document
// (credit/debit note reversal).
//
// AccountLevel distinguishes the two chains:
//   - true:  OpeningBalance/ClosingBalance snapshot Account.CurrentBalance
//   - false: the snapshot is the per-AWB audit value; the account balance
//     was not touched when this entry was written
type Entry struct {
	ID          EntryID
	AccountCode AccountCode
	AWBNo       AWBNo // empty for account-wide entries (e.g. payments)
	Kind        TxKind
	Amount      decimal.Decimal // signed delta applied by this entry

	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	AccountLevel   bool

	Remark    string
	SourceRef string // receipt / invoice / note number of the source document

	// Receipt numbering, present only for payment and temp-credit entries.
	ReceiptFamily SequenceFamily
	ReceiptNo     int64

	CreatedAt time.Time
}

// =============================================================================
// NOTES - Source documents that fan out into AWB-scoped entries
// =============================================================================

type NoteKind string

const (
	NoteCredit NoteKind = "credit"
	NoteDebit  NoteKind = "debit"
)

// NoteLine is one line item of a credit or debit note.
type NoteLine struct {
	AWBNo  AWBNo
	Amount decimal.Decimal // magnitude; sign comes from the note kind
}

// BalanceSnapshot is the before/after pair returned by the mutator and
// stamped onto the entry it produced.
type BalanceSnapshot struct {
	Opening decimal.Decimal
	Closing decimal.Decimal
}
