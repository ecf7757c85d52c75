// Package store provides the in-memory ledger.TxStore used by tests and
// the dev server. Transactions are simulated with snapshot + rollback.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cargolink/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[ledger.AccountCode]ledger.Account
	entries  []ledger.Entry // commit order
	receipts map[receiptKey]bool
}

type receiptKey struct {
	Family ledger.SequenceFamily
	No     int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ledger.AccountCode]ledger.Account),
		receipts: make(map[receiptKey]bool),
	}
}

// CreateAccount persists a new account.
func (m *Memory) CreateAccount(_ context.Context, acc ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(acc)
}

func (m *Memory) createAccountLocked(acc ledger.Account) error {
	if _, ok := m.accounts[acc.Code]; ok {
		return fmt.Errorf("account %q: %w", acc.Code, ledger.ErrAccountExists)
	}
	m.accounts[acc.Code] = acc
	return nil
}

// GetAccount returns a copy, or (nil, nil) when the code is unknown.
func (m *Memory) GetAccount(_ context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(code)
}

func (m *Memory) getAccountLocked(code ledger.AccountCode) (*ledger.Account, error) {
	acc, ok := m.accounts[code]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

// ListAccounts returns all accounts ordered by code.
func (m *Memory) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked()
}

func (m *Memory) listAccountsLocked() ([]ledger.Account, error) {
	accounts := make([]ledger.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Code < accounts[j].Code
	})
	return accounts, nil
}

// UpdateAccount persists account changes conditionally on acc.Version.
func (m *Memory) UpdateAccount(_ context.Context, acc ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccountLocked(acc)
}

func (m *Memory) updateAccountLocked(acc ledger.Account) error {
	existing, ok := m.accounts[acc.Code]
	if !ok {
		return &ledger.AccountNotFoundError{Code: acc.Code}
	}
	if existing.Version != acc.Version {
		return fmt.Errorf("account %q version %d: %w", acc.Code, acc.Version, ledger.ErrStaleBalanceRead)
	}
	acc.Version++
	m.accounts[acc.Code] = acc
	return nil
}

// AppendEntry persists one immutable entry.
func (m *Memory) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

// AppendEntries persists multiple entries atomically.
func (m *Memory) AppendEntries(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check receipt collisions across the whole batch first (atomic check)
	seen := make(map[receiptKey]bool)
	for _, e := range entries {
		if e.ReceiptFamily == "" {
			continue
		}
		k := receiptKey{Family: e.ReceiptFamily, No: e.ReceiptNo}
		if seen[k] || m.receipts[k] {
			return fmt.Errorf("receipt %s/%d: %w", e.ReceiptFamily, e.ReceiptNo, ledger.ErrSequenceConflict)
		}
		seen[k] = true
	}

	for _, e := range entries {
		if err := m.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	if e.ReceiptFamily != "" {
		k := receiptKey{Family: e.ReceiptFamily, No: e.ReceiptNo}
		if m.receipts[k] {
			return fmt.Errorf("receipt %s/%d: %w", e.ReceiptFamily, e.ReceiptNo, ledger.ErrSequenceConflict)
		}
		m.receipts[k] = true
	}
	m.entries = append(m.entries, e)
	return nil
}

// EntriesByAccount returns every entry for the account in commit order.
func (m *Memory) EntriesByAccount(_ context.Context, code ledger.AccountCode) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code
	}), nil
}

// EntriesByAWB returns the (account, AWB) chain in commit order.
func (m *Memory) EntriesByAWB(_ context.Context, code ledger.AccountCode, awb ledger.AWBNo) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AWBNo == awb
	}), nil
}

// EntriesBySourceRef returns every entry referencing a source document.
func (m *Memory) EntriesBySourceRef(_ context.Context, sourceRef string) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(e ledger.Entry) bool {
		return e.SourceRef == sourceRef
	}), nil
}

// LastEntryForAWB returns the most recent entry for (account, AWB).
func (m *Memory) LastEntryForAWB(_ context.Context, code ledger.AccountCode, awb ledger.AWBNo) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AWBNo == awb
	}), nil
}

// LastAccountEntry returns the most recent account-level entry.
func (m *Memory) LastAccountEntry(_ context.Context, code ledger.AccountCode) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AccountLevel
	}), nil
}

// HasSourceRef reports whether any entry already references the document.
func (m *Memory) HasSourceRef(_ context.Context, sourceRef string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLocked(func(e ledger.Entry) bool {
		return e.SourceRef == sourceRef
	}) != nil, nil
}

// MaxReceiptNo returns the highest receipt number issued for a family.
func (m *Memory) MaxReceiptNo(_ context.Context, family ledger.SequenceFamily) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxReceiptLocked(family)
}

func (m *Memory) maxReceiptLocked(family ledger.SequenceFamily) (int64, bool, error) {
	var max int64
	var found bool
	for k := range m.receipts {
		if k.Family == family && (!found || k.No > max) {
			max = k.No
			found = true
		}
	}
	return max, found, nil
}

// DeleteBySourceRef removes note entries tied to a deleted source document.
func (m *Memory) DeleteBySourceRef(_ context.Context, sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(sourceRef, awbs)
}

func (m *Memory) deleteLocked(sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	awbSet := make(map[ledger.AWBNo]bool, len(awbs))
	for _, awb := range awbs {
		awbSet[awb] = true
	}

	var kept []ledger.Entry
	var deleted int64
	for _, e := range m.entries {
		noteKind := e.Kind == ledger.TxCreditNote || e.Kind == ledger.TxDebitNote
		match := e.SourceRef == sourceRef && noteKind &&
			(len(awbs) == 0 || awbSet[e.AWBNo])
		if match {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return deleted, nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[ledger.AccountCode]ledger.Account)
	m.entries = nil
	m.receipts = make(map[receiptKey]bool)
	return nil
}

func (m *Memory) filterLocked(match func(ledger.Entry) bool) []ledger.Entry {
	var result []ledger.Entry
	for _, e := range m.entries {
		if match(e) {
			result = append(result, e)
		}
	}
	return result
}

func (m *Memory) lastLocked(match func(ledger.Entry) bool) *ledger.Entry {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if match(m.entries[i]) {
			e := m.entries[i]
			return &e
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	accCopy := make(map[ledger.AccountCode]ledger.Account, len(tm.accounts))
	for k, v := range tm.accounts {
		accCopy[k] = v
	}
	receiptCopy := make(map[receiptKey]bool, len(tm.receipts))
	for k, v := range tm.receipts {
		receiptCopy[k] = v
	}
	entriesCopy := append([]ledger.Entry{}, tm.entries...)
	return memorySnapshot{accounts: accCopy, entries: entriesCopy, receipts: receiptCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.accounts = s.accounts
	tm.entries = s.entries
	tm.receipts = s.receipts
}

type memorySnapshot struct {
	accounts map[ledger.AccountCode]ledger.Account
	entries  []ledger.Entry
	receipts map[receiptKey]bool
}

// txMemoryView operates on the parent's state without re-locking; the
// parent's mutex is held for the duration of WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) CreateAccount(_ context.Context, acc ledger.Account) error {
	return tv.parent.createAccountLocked(acc)
}

func (tv *txMemoryView) GetAccount(_ context.Context, code ledger.AccountCode) (*ledger.Account, error) {
	return tv.parent.getAccountLocked(code)
}

func (tv *txMemoryView) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	return tv.parent.listAccountsLocked()
}

func (tv *txMemoryView) UpdateAccount(_ context.Context, acc ledger.Account) error {
	return tv.parent.updateAccountLocked(acc)
}

func (tv *txMemoryView) AppendEntry(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) AppendEntries(_ context.Context, entries []ledger.Entry) error {
	for _, e := range entries {
		if err := tv.parent.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (tv *txMemoryView) EntriesByAccount(_ context.Context, code ledger.AccountCode) ([]ledger.Entry, error) {
	return tv.parent.filterLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code
	}), nil
}

func (tv *txMemoryView) EntriesByAWB(_ context.Context, code ledger.AccountCode, awb ledger.AWBNo) ([]ledger.Entry, error) {
	return tv.parent.filterLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AWBNo == awb
	}), nil
}

func (tv *txMemoryView) EntriesBySourceRef(_ context.Context, sourceRef string) ([]ledger.Entry, error) {
	return tv.parent.filterLocked(func(e ledger.Entry) bool {
		return e.SourceRef == sourceRef
	}), nil
}

func (tv *txMemoryView) LastEntryForAWB(_ context.Context, code ledger.AccountCode, awb ledger.AWBNo) (*ledger.Entry, error) {
	return tv.parent.lastLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AWBNo == awb
	}), nil
}

func (tv *txMemoryView) LastAccountEntry(_ context.Context, code ledger.AccountCode) (*ledger.Entry, error) {
	return tv.parent.lastLocked(func(e ledger.Entry) bool {
		return e.AccountCode == code && e.AccountLevel
	}), nil
}

func (tv *txMemoryView) HasSourceRef(_ context.Context, sourceRef string) (bool, error) {
	return tv.parent.lastLocked(func(e ledger.Entry) bool {
		return e.SourceRef == sourceRef
	}) != nil, nil
}

func (tv *txMemoryView) MaxReceiptNo(_ context.Context, family ledger.SequenceFamily) (int64, bool, error) {
	return tv.parent.maxReceiptLocked(family)
}

func (tv *txMemoryView) DeleteBySourceRef(_ context.Context, sourceRef string, awbs []ledger.AWBNo) (int64, error) {
	return tv.parent.deleteLocked(sourceRef, awbs)
}
