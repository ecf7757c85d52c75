/*
guard.go - Credit limit guard

PURPOSE:
  An optional secondary counter on the account, adjusted in lockstep with
  (and opposite to) the balance. Two observed policies, selected per call:

  Strict:     before an extra charge, verify the remaining limit covers the
              amount; reject with InsufficientCredit otherwise. On success
              the limit moves opposite the balance change.
  Permissive: the balance is always applied regardless of limit, the limit
              still moves, and any prior hold placed for "credit limit
              exceeded" is auto-released once the charge succeeds.

  Whether strict or permissive is the right policy is a deployment decision;
  the engine exposes both and accounts carry a default.
*/
package ledger

import "github.com/shopspring/decimal"

// applyGuard adjusts the account's credit limit counter for the given delta.
// Mutates acc in place; the caller persists it.
func applyGuard(acc *Account, delta decimal.Decimal, policy GuardPolicy) error {
	switch policy {
	case GuardStrict:
		// Only charges (balance-increasing deltas) consume limit; releases
		// (negative deltas) always pass and restore it. The hold flag is
		// persisted by the engine outside the rolled-back transaction.
		if delta.IsPositive() && acc.CreditLimit.LessThan(delta) {
			return &InsufficientCreditError{
				Code:      acc.Code,
				Available: acc.CreditLimit,
				Requested: delta,
			}
		}
		acc.CreditLimit = acc.CreditLimit.Sub(delta)
		return nil

	case GuardPermissive:
		acc.CreditLimit = acc.CreditLimit.Sub(delta)
		acc.CreditHold = false
		return nil
	}

	return nil
}
