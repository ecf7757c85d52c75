/*
rules.go - Transaction rules table

PURPOSE:
  The single place that answers "which way, and by how much, does this
  transaction move a balance?". Effect() is a pure function from transaction
  kind + amount + modifiers to a signed delta. Nothing here reads or writes
  state.

RULES, BY KIND:
  Sale / sale amendment     +amount (amendment callers pass newTotal-oldTotal)
  Payment (normal accounts) Return / General Entry / Other / TDS subtract;
                            Bad Debts adds
  Temp-credit entry         inverted sub-type table: Return / General Entry /
                            TDS / Other add; Bad Debts subtracts
  Credit note line          -amount (AWB-scoped chain)
  Debit note line           +amount (AWB-scoped chain)

OVERRIDES:
  An explicit debit or credit amount on the operation takes priority over the
  sub-type table: debit adds, credit subtracts. Adjustments are override-only.

  Unrecognized sub-types are rejected with ErrInvalidSubType rather than
  falling through to a default branch.
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EffectInput carries everything the rules table needs to derive a delta.
type EffectInput struct {
	Kind   TxKind
	Amount decimal.Decimal

	// Sub-type, consulted for payments and temp-credit entries only.
	SubType ReceiptSubType

	// Explicit overrides. When present they win over the sub-type table.
	DebitAmount  *decimal.Decimal
	CreditAmount *decimal.Decimal
}

// Effect derives the signed balance delta for a transaction.
func Effect(in EffectInput) (decimal.Decimal, error) {
	// Manual debit/credit override beats every sub-type rule.
	if in.DebitAmount != nil {
		return *in.DebitAmount, nil
	}
	if in.CreditAmount != nil {
		return in.CreditAmount.Neg(), nil
	}

	switch in.Kind {
	case TxSale, TxSaleAmendment, TxDebitNote:
		return in.Amount, nil

	case TxCreditNote:
		return in.Amount.Neg(), nil

	case TxPayment:
		if !in.SubType.Known() {
			return decimal.Zero, fmt.Errorf("payment sub-type %q: %w", in.SubType, ErrInvalidSubType)
		}
		if in.SubType == SubTypeBadDebts {
			return in.Amount, nil
		}
		return in.Amount.Neg(), nil

	case TxTempCredit:
		// Same table as payments with the sign convention inverted.
		if !in.SubType.Known() {
			return decimal.Zero, fmt.Errorf("temp-credit sub-type %q: %w", in.SubType, ErrInvalidSubType)
		}
		if in.SubType == SubTypeBadDebts {
			return in.Amount.Neg(), nil
		}
		return in.Amount, nil

	case TxAdjustment:
		// Adjustments exist only as explicit overrides, handled above.
		return decimal.Zero, fmt.Errorf("adjustment requires an explicit debit or credit amount: %w", ErrInvalidAmount)

	default:
		return decimal.Zero, fmt.Errorf("unknown transaction kind %q", in.Kind)
	}
}

// requiredMode returns the account mode a transaction kind demands, or ""
// when the kind is legal for any mode.
func requiredMode(kind TxKind) AccountMode {
	switch kind {
	case TxPayment:
		return ModeNormal
	case TxTempCredit:
		return ModeTemp
	}
	return ""
}
