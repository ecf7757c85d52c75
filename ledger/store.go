/*
store.go - Persistence interface for accounts and ledger entries

PURPOSE:
  Defines the boundary between the engine and the database. Entries are
  append-only with one sanctioned exception: deleting the fan-out of a
  reversed credit/debit note by its source reference. Accounts are updated
  only through the version-conditional UpdateAccount.

OPTIMISTIC CONCURRENCY:
  UpdateAccount persists the account ONLY when the stored version still
  matches Account.Version, bumping the version on success. A mismatch
  surfaces as ErrStaleBalanceRead so the mutator can re-read and retry.
  This makes the database the final arbiter even when several processes
  share it; the in-process per-account lock (mutator.go) handles the
  single-process fast path.

IMPLEMENTATIONS:
  - store/sqlite: production store (database/sql + go-sqlite3, WAL)
  - ledger/store: in-memory store for tests and dev

SEE ALSO:
  - mutator.go: the only caller of UpdateAccount
  - engine.go: runs every mutation inside TxStore.WithTx
*/
package ledger

import "context"

// Store handles persistence of accounts and entries.
type Store interface {
	// CreateAccount persists a new account. Fails with ErrAccountExists if
	// the code is taken.
	CreateAccount(ctx context.Context, acc Account) error

	// GetAccount returns the account, or (nil, nil) when the code is unknown.
	GetAccount(ctx context.Context, code AccountCode) (*Account, error)

	// ListAccounts returns all accounts ordered by code.
	ListAccounts(ctx context.Context) ([]Account, error)

	// UpdateAccount persists balance/limit/hold changes conditionally on
	// acc.Version. Returns ErrStaleBalanceRead when the version moved.
	UpdateAccount(ctx context.Context, acc Account) error

	// AppendEntry persists one immutable entry. Returns ErrSequenceConflict
	// when the entry's receipt number collides within its family.
	AppendEntry(ctx context.Context, e Entry) error

	// AppendEntries persists multiple entries atomically.
	AppendEntries(ctx context.Context, entries []Entry) error

	// EntriesByAccount returns every entry for the account in commit order.
	EntriesByAccount(ctx context.Context, code AccountCode) ([]Entry, error)

	// EntriesByAWB returns the entry chain for (account, AWB) in commit order.
	EntriesByAWB(ctx context.Context, code AccountCode, awb AWBNo) ([]Entry, error)

	// EntriesBySourceRef returns every entry referencing a source document.
	EntriesBySourceRef(ctx context.Context, sourceRef string) ([]Entry, error)

	// LastEntryForAWB returns the most recent entry for (account, AWB), or
	// (nil, nil) when the AWB has no ledger presence yet.
	LastEntryForAWB(ctx context.Context, code AccountCode, awb AWBNo) (*Entry, error)

	// LastAccountEntry returns the most recent account-level entry, or
	// (nil, nil) when the account has none.
	LastAccountEntry(ctx context.Context, code AccountCode) (*Entry, error)

	// HasSourceRef reports whether any entry already references the document.
	HasSourceRef(ctx context.Context, sourceRef string) (bool, error)

	// MaxReceiptNo returns the highest receipt number issued for a family.
	// found is false when the family has no numbered entries yet.
	MaxReceiptNo(ctx context.Context, family SequenceFamily) (max int64, found bool, err error)

	// DeleteBySourceRef removes note entries tied to a deleted source
	// document. When awbs is non-empty, deletion is restricted to those
	// waybills. Returns the number of entries removed. This is the only
	// delete the ledger permits.
	DeleteBySourceRef(ctx context.Context, sourceRef string, awbs []AWBNo) (int64, error)
}

// TxStore wraps Store with transaction support. Every engine mutation runs
// inside WithTx so the balance update and the entry insert commit together
// or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
