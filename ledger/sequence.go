/*
sequence.go - Receipt number generation per transaction family

PURPOSE:
  Issues strictly increasing, human-readable document numbers. There is no
  separate counter row: the next number is the maximum already issued for
  the family plus one, with a fixed floor when the family has no entries yet
  (payment receipts start at 1000, temp-credit receipts at 5000).

UNIQUENESS:
  Allocation happens inside the same store transaction as the entry insert.
  A concurrent allocation of the same number trips the store's unique
  (family, receipt_no) constraint and surfaces as ErrSequenceConflict; the
  engine retries the whole transaction with a fresh read. Numbers burned by
  an operation that failed after allocation are never reissued, because the
  next read of the maximum only sees committed entries.
*/
package ledger

import (
	"context"
	"fmt"
)

// Sequence floors per family.
const (
	paymentReceiptFloor    = 1000
	tempCreditReceiptFloor = 5000
)

// SequenceGenerator issues the next document number for a family.
type SequenceGenerator struct{}

func NewSequenceGenerator() *SequenceGenerator { return &SequenceGenerator{} }

// Next returns the next receipt number for the family, reading the current
// maximum through the given (transaction-scoped) store.
func (g *SequenceGenerator) Next(ctx context.Context, s Store, family SequenceFamily) (int64, error) {
	max, found, err := s.MaxReceiptNo(ctx, family)
	if err != nil {
		return 0, fmt.Errorf("read max receipt number for %q: %w", family, err)
	}
	if !found {
		return familyFloor(family)
	}
	return max + 1, nil
}

func familyFloor(family SequenceFamily) (int64, error) {
	switch family {
	case FamilyPayment:
		return paymentReceiptFloor, nil
	case FamilyTempCredit:
		return tempCreditReceiptFloor, nil
	}
	return 0, fmt.Errorf("unknown sequence family %q", family)
}
