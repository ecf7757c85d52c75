/*
mutator.go - Serialized mutation of the account balance

PURPOSE:
  Account.CurrentBalance is the critical shared resource: two concurrent
  operations on the same account must never interleave their read-then-write
  and lose an update. The mutator owns that boundary.

TWO LAYERS OF PROTECTION:
  1. Per-account mutex (this file): all in-process mutations of one account
     are serialized. Different accounts proceed in parallel.
  2. Version-conditional update (store.go): the database rejects a write
     against a balance that moved underneath us (ErrStaleBalanceRead), which
     covers multiple processes sharing one database.

CONTRACT:
  ApplyAccountDelta reads the current balance, computes closing = opening +
  delta, persists closing, and returns the before/after pair for the caller
  to stamp onto its entry. It must be called with the account's lock held
  and inside the store transaction that writes the entry.
*/
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceMutator serializes balance changes per account code.
type BalanceMutator struct {
	mu    sync.Mutex
	locks map[AccountCode]*sync.Mutex
}

func NewBalanceMutator() *BalanceMutator {
	return &BalanceMutator{locks: make(map[AccountCode]*sync.Mutex)}
}

// Acquire locks the account and returns the unlock function.
func (m *BalanceMutator) Acquire(code AccountCode) func() {
	m.mu.Lock()
	l, ok := m.locks[code]
	if !ok {
		l = &sync.Mutex{}
		m.locks[code] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ApplyOptions qualify a balance mutation.
type ApplyOptions struct {
	// RequireMode rejects the mutation with InvalidModeError when the
	// account's mode differs. Zero value skips the check.
	RequireMode AccountMode

	// Guard engages the credit limit counter for this mutation. The zero
	// value falls back to the account's GuardDefault.
	Guard GuardPolicy
}

// ApplyAccountDelta applies a signed delta to the account's running balance
// and returns the opening/closing snapshot.
//
// Must run inside the same store transaction as the entry insert, with the
// account's lock held (Acquire).
func (m *BalanceMutator) ApplyAccountDelta(ctx context.Context, s Store, code AccountCode, delta decimal.Decimal, opts ApplyOptions) (BalanceSnapshot, *Account, error) {
	acc, err := s.GetAccount(ctx, code)
	if err != nil {
		return BalanceSnapshot{}, nil, err
	}
	if acc == nil {
		return BalanceSnapshot{}, nil, &AccountNotFoundError{Code: code}
	}
	if opts.RequireMode != "" && acc.Mode != opts.RequireMode {
		return BalanceSnapshot{}, nil, &InvalidModeError{Code: code, Have: acc.Mode, Want: opts.RequireMode}
	}

	opening := acc.CurrentBalance
	closing := opening.Add(delta)

	guard := opts.Guard
	if guard == "" {
		guard = acc.GuardDefault
	}
	if err := applyGuard(acc, delta, guard); err != nil {
		return BalanceSnapshot{}, nil, err
	}

	acc.CurrentBalance = closing
	if err := s.UpdateAccount(ctx, *acc); err != nil {
		return BalanceSnapshot{}, nil, err
	}
	acc.Version++

	return BalanceSnapshot{Opening: opening, Closing: closing}, acc, nil
}

// Now is a seam for tests; production uses the wall clock.
var Now = func() time.Time { return time.Now().UTC() }
