/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore using database/sql + go-sqlite3. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE statements touch ledger_entries. The single DELETE path is
  DeleteBySourceRef, restricted to credit/debit note kinds, mirroring the
  cascade of a deleted note document.

KEY TABLES:
  accounts:       one row per customer account, version column for
                  optimistic concurrency
  ledger_entries: immutable entries; seq (AUTOINCREMENT) is the commit
                  order tiebreaker, id is the external UUID

INDEXES:
  - idx_entries_account:      account statement reads (hot path)
  - idx_entries_account_awb:  AWB chain tail lookup
  - idx_entries_source_ref:   duplicate-note checks and reversal
  - idx_unique_receipt_no:    enforces receipt number uniqueness per family;
                              violations surface as ErrSequenceConflict

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/cargolink.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: interface definitions
  - ledger/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cargolink/ledger-engine/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise open its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (one authoritative balance per customer)
	CREATE TABLE IF NOT EXISTS accounts (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		credit_limit TEXT NOT NULL,
		credit_hold BOOLEAN NOT NULL DEFAULT FALSE,
		guard_default TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- Ledger entries (append-only)
	-- seq gives a monotonic commit order even when created_at ties.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_code TEXT NOT NULL,
		awb_no TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		closing_balance TEXT NOT NULL,
		account_level BOOLEAN NOT NULL,
		remark TEXT,
		source_ref TEXT,
		receipt_family TEXT,
		receipt_no INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account
		ON ledger_entries(account_code, seq);

	-- AWB chain tail lookup (hot path for note fan-out)
	CREATE INDEX IF NOT EXISTS idx_entries_account_awb
		ON ledger_entries(account_code, awb_no, seq);

	CREATE INDEX IF NOT EXISTS idx_entries_source_ref
		ON ledger_entries(source_ref) WHERE source_ref IS NOT NULL AND source_ref != '';

	-- CRITICAL: a receipt number is issued at most once per family.
	-- Concurrent allocations of the same number fail here and the engine
	-- retries with a fresh number.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_receipt_no
		ON ledger_entries(receipt_family, receipt_no)
		WHERE receipt_family IS NOT NULL AND receipt_family != '';
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve the plain store and the transactional view.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// CreateAccount persists a new account.
func (s *Store) CreateAccount(ctx context.Context, acc ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createAccount(ctx, s.db, acc)
}

func createAccount(ctx context.Context, q querier, acc ledger.Account) error {
	query := `
		INSERT INTO accounts (code, name, mode, current_balance, credit_limit, credit_hold, guard_default, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		string(acc.Code),
		acc.Name,
		string(acc.Mode),
		acc.CurrentBalance.String(),
		acc.CreditLimit.String(),
		acc.CreditHold,
		string(acc.GuardDefault),
		acc.Version,
		acc.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("account %q: %w", acc.Code, ledger.ErrAccountExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount returns the account, or (nil, nil) when the code is unknown.
func (s *Store) GetAccount(ctx context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, code)
}

func getAccount(ctx context.Context, q querier, code ledger.AccountCode) (*ledger.Account, error) {
	row := q.QueryRowContext(ctx,
		`SELECT code, name, mode, current_balance, credit_limit, credit_hold, guard_default, version, created_at
		 FROM accounts WHERE code = ?`,
		string(code),
	)

	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ListAccounts returns all accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAccounts(ctx, s.db)
}

func listAccounts(ctx context.Context, q querier) ([]ledger.Account, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT code, name, mode, current_balance, credit_limit, credit_hold, guard_default, version, created_at
		 FROM accounts ORDER BY code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// UpdateAccount persists account changes conditionally on acc.Version.
func (s *Store) UpdateAccount(ctx context.Context, acc ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAccount(ctx, s.db, acc)
}

func updateAccount(ctx context.Context, q querier, acc ledger.Account) error {
	query := `
		UPDATE accounts
		SET name = ?, mode = ?, current_balance = ?, credit_limit = ?,
		    credit_hold = ?, guard_default = ?, version = version + 1
		WHERE code = ? AND version = ?
	`

	res, err := q.ExecContext(ctx, query,
		acc.Name,
		string(acc.Mode),
		acc.CurrentBalance.String(),
		acc.CreditLimit.String(),
		acc.CreditHold,
		string(acc.GuardDefault),
		string(acc.Code),
		acc.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := getAccount(ctx, q, acc.Code)
		if err != nil {
			return err
		}
		if existing == nil {
			return &ledger.AccountNotFoundError{Code: acc.Code}
		}
		return fmt.Errorf("account %q version %d: %w", acc.Code, acc.Version, ledger.ErrStaleBalanceRead)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAccount(row scannable) (*ledger.Account, error) {
	var (
		acc          ledger.Account
		balance      string
		limit        string
		guardDefault string
		createdAt    string
	)

	err := row.Scan(&acc.Code, &acc.Name, &acc.Mode, &balance, &limit,
		&acc.CreditHold, &guardDefault, &acc.Version, &createdAt)
	if err != nil {
		return nil, err
	}

	acc.CurrentBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for account %q: %w", acc.Code, err)
	}
	acc.CreditLimit, err = decimal.NewFromString(limit)
	if err != nil {
		return nil, fmt.Errorf("corrupt credit limit for account %q: %w", acc.Code, err)
	}
	acc.GuardDefault = ledger.GuardPolicy(guardDefault)
	acc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &acc, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, account_code, awb_no, kind, amount, opening_balance,
	closing_balance, account_level, remark, source_ref, receipt_family,
	receipt_no, created_at`

// AppendEntry persists one immutable entry.
func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, q querier, e ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries
		(id, account_code, awb_no, kind, amount, opening_balance, closing_balance,
		 account_level, remark, source_ref, receipt_family, receipt_no, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var receiptFamily any
	var receiptNo any
	if e.ReceiptFamily != "" {
		receiptFamily = string(e.ReceiptFamily)
		receiptNo = e.ReceiptNo
	}

	_, err := q.ExecContext(ctx, query,
		string(e.ID),
		string(e.AccountCode),
		string(e.AWBNo),
		string(e.Kind),
		e.Amount.String(),
		e.OpeningBalance.String(),
		e.ClosingBalance.String(),
		e.AccountLevel,
		nullString(e.Remark),
		nullString(e.SourceRef),
		receiptFamily,
		receiptNo,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "idx_unique_receipt_no") {
				return fmt.Errorf("receipt %s/%d: %w", e.ReceiptFamily, e.ReceiptNo, ledger.ErrSequenceConflict)
			}
			return fmt.Errorf("entry %q already exists: %w", e.ID, ledger.ErrSequenceConflict)
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// AppendEntries persists multiple entries atomically.
func (s *Store) AppendEntries(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EntriesByAccount returns every entry for the account in commit order.
func (s *Store) EntriesByAccount(ctx context.Context, code ledger.AccountCode) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByAccount(ctx, s.db, code)
}

func entriesByAccount(ctx context.Context, q querier, code ledger.AccountCode) ([]ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries WHERE account_code = ? ORDER BY seq ASC`
	return queryEntries(ctx, q, query, string(code))
}

// EntriesByAWB returns the entry chain for (account, AWB) in commit order.
func (s *Store) EntriesByAWB(ctx context.Context, code ledger.AccountCode, awb ledger.AWBNo) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByAWB(ctx, s.db, code, awb)
}

func entriesByAWB(ctx context.Context, q querier, code ledger.AccountCode, awb ledger.AWBNo) ([]ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries WHERE account_code = ? AND awb_no = ? ORDER BY seq ASC`
	return queryEntries(ctx, q, query, string(code), string(awb))
}

// EntriesBySourceRef returns every entry referencing a source document.
func (s *Store) EntriesBySourceRef(ctx context.Context, sourceRef string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesBySourceRef(ctx, s.db, sourceRef)
}

func entriesBySourceRef(ctx context.Context, q querier, sourceRef string) ([]ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries WHERE source_ref = ? ORDER BY seq ASC`
	return queryEntries(ctx, q, query, sourceRef)
}

// LastEntryForAWB returns the most recent entry for (account, AWB).
func (s *Store) LastEntryForAWB(ctx context.Context, code ledger.AccountCode, awb ledger.AWBNo) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastEntryForAWB(ctx, s.db, code, awb)
}

func lastEntryForAWB(ctx context.Context, q querier, code ledger.AccountCode, awb ledger.AWBNo) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries WHERE account_code = ? AND awb_no = ?
		ORDER BY seq DESC LIMIT 1`

	entries, err := queryEntries(ctx, q, query, string(code), string(awb))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// LastAccountEntry returns the most recent account-level entry.
func (s *Store) LastAccountEntry(ctx context.Context, code ledger.AccountCode) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastAccountEntry(ctx, s.db, code)
}

func lastAccountEntry(ctx context.Context, q querier, code ledger.AccountCode) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM ledger_entries WHERE account_code = ? AND account_level = TRUE
		ORDER BY seq DESC LIMIT 1`

	entries, err := queryEntries(ctx, q, query, string(code))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// HasSourceRef reports whether any entry already references the document.
func (s *Store) HasSourceRef(ctx context.Context, sourceRef string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasSourceRef(ctx, s.db, sourceRef)
}

func hasSourceRef(ctx context.Context, q querier, sourceRef string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE source_ref = ?",
		sourceRef,
	).Scan(&count)
	return count > 0, err
}

// MaxReceiptNo returns the highest receipt number issued for a family.
func (s *Store) MaxReceiptNo(ctx context.Context, family ledger.SequenceFamily) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxReceiptNo(ctx, s.db, family)
}

func maxReceiptNo(ctx context.Context, q querier, family ledger.SequenceFamily) (int64, bool, error) {
	var max sql.NullInt64
	err := q.QueryRowContext(ctx,
		"SELECT MAX(receipt_no) FROM ledger_entries WHERE receipt_family = ?",
		string(family),
	).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	return max.Int64, max.Valid, nil
}

// DeleteBySourceRef removes note entries tied to a deleted source document.
// Restricted to credit/debit note kinds; account-level entries are never
// deletable through this path.
func (s *Store) DeleteBySourceRef(ctx context.Context, sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBySourceRef(ctx, s.db, sourceRef, awbs)
}

func deleteBySourceRef(ctx context.Context, q querier, sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	query := `DELETE FROM ledger_entries
		WHERE source_ref = ? AND kind IN ('credit_note', 'debit_note')`
	args := []any{sourceRef}

	if len(awbs) > 0 {
		placeholders := make([]string, len(awbs))
		for i, awb := range awbs {
			placeholders[i] = "?"
			args = append(args, string(awb))
		}
		query += " AND awb_no IN (" + strings.Join(placeholders, ", ") + ")"
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries for %q: %w", sourceRef, err)
	}
	return res.RowsAffected()
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e             ledger.Entry
		amount        string
		opening       string
		closing       string
		remark        sql.NullString
		sourceRef     sql.NullString
		receiptFamily sql.NullString
		receiptNo     sql.NullInt64
		createdAt     string
	)

	err := rows.Scan(&e.ID, &e.AccountCode, &e.AWBNo, &e.Kind, &amount,
		&opening, &closing, &e.AccountLevel, &remark, &sourceRef,
		&receiptFamily, &receiptNo, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("corrupt amount for entry %q: %w", e.ID, err)
	}
	if e.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return e, fmt.Errorf("corrupt opening balance for entry %q: %w", e.ID, err)
	}
	if e.ClosingBalance, err = decimal.NewFromString(closing); err != nil {
		return e, fmt.Errorf("corrupt closing balance for entry %q: %w", e.ID, err)
	}
	e.Remark = remark.String
	e.SourceRef = sourceRef.String
	e.ReceiptFamily = ledger.SequenceFamily(receiptFamily.String)
	e.ReceiptNo = receiptNo.Int64
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the in-transaction view of the store. All statements run
// through the sql.Tx so reads observe the transaction's own writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateAccount(ctx context.Context, acc ledger.Account) error {
	return createAccount(ctx, ts.tx, acc)
}

func (ts *txStore) GetAccount(ctx context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	return getAccount(ctx, ts.tx, code)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) UpdateAccount(ctx context.Context, acc ledger.Account) error {
	return updateAccount(ctx, ts.tx, acc)
}

func (ts *txStore) AppendEntry(ctx context.Context, e ledger.Entry) error {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) AppendEntries(ctx context.Context, entries []ledger.Entry) error {
	for _, e := range entries {
		if err := appendEntry(ctx, ts.tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) EntriesByAccount(ctx context.Context, code ledger.AccountCode) ([]ledger.Entry, error) {
	return entriesByAccount(ctx, ts.tx, code)
}

func (ts *txStore) EntriesByAWB(ctx context.Context, code ledger.AccountCode, awb ledger.AWBNo) ([]ledger.Entry, error) {
	return entriesByAWB(ctx, ts.tx, code, awb)
}

func (ts *txStore) EntriesBySourceRef(ctx context.Context, sourceRef string) ([]ledger.Entry, error) {
	return entriesBySourceRef(ctx, ts.tx, sourceRef)
}

func (ts *txStore) LastEntryForAWB(ctx context.Context, code ledger.AccountCode, awb ledger.AWBNo) (*ledger.Entry, error) {
	return lastEntryForAWB(ctx, ts.tx, code, awb)
}

func (ts *txStore) LastAccountEntry(ctx context.Context, code ledger.AccountCode) (*ledger.Entry, error) {
	return lastAccountEntry(ctx, ts.tx, code)
}

func (ts *txStore) HasSourceRef(ctx context.Context, sourceRef string) (bool, error) {
	return hasSourceRef(ctx, ts.tx, sourceRef)
}

func (ts *txStore) MaxReceiptNo(ctx context.Context, family ledger.SequenceFamily) (int64, bool, error) {
	return maxReceiptNo(ctx, ts.tx, family)
}

func (ts *txStore) DeleteBySourceRef(ctx context.Context, sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	return deleteBySourceRef(ctx, ts.tx, sourceRef, awbs)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"ledger_entries", "accounts"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
