/*
errors.go - Centralized error taxonomy for the ledger engine

ERROR CATEGORIES:
  1. Fatal to the operation - AccountNotFound, InvalidAccountMode, InvalidSubType
  2. Business rejections    - InsufficientCredit, DuplicateSourceRef
  3. Transient              - SequenceConflict, StaleBalanceRead (retry with backoff)

Every mutation failure leaves the account balance and ledger unchanged:
either the balance update and the entry commit together, or neither does.

USAGE:
  Callers classify with the helpers rather than matching sentinels directly:

    if ledger.IsRetryable(err) { retry with backoff }
    if ledger.IsClientError(err) { surface to the user, do not retry }

SEE ALSO:
  - engine.go: wraps sentinels with structured context where useful
  - store/sqlite: maps constraint violations onto these sentinels
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when an account code does not resolve.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account whose code is taken.
	ErrAccountExists = errors.New("account code already exists")

	// ErrInvalidAccountMode is returned when the operation's required mode
	// ("normal" vs "temp") does not match the account's mode.
	ErrInvalidAccountMode = errors.New("operation not permitted for account mode")

	// ErrInvalidSubType is returned for receipt sub-types outside the closed
	// set. Unrecognized sub-types are rejected, never silently defaulted.
	ErrInvalidSubType = errors.New("unrecognized receipt sub-type")

	// ErrInsufficientCredit is a business rejection from the strict credit
	// limit guard. Not an internal failure.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrSequenceConflict is returned when a concurrently allocated receipt
	// number collided. Transient; the caller may retry allocation.
	ErrSequenceConflict = errors.New("receipt number conflict")

	// ErrStaleBalanceRead is returned when the optimistic check during the
	// mutator's read-modify-write detects a concurrent update. Transient.
	ErrStaleBalanceRead = errors.New("stale balance read")

	// ErrDuplicateSourceRef is returned when a note is applied twice with the
	// same source reference without an intervening deletion.
	ErrDuplicateSourceRef = errors.New("source reference already applied")

	// ErrInvalidAmount is returned for zero/negative magnitudes where a
	// positive amount is required.
	ErrInvalidAmount = errors.New("invalid amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AccountNotFoundError identifies the unresolved code.
type AccountNotFoundError struct {
	Code AccountCode
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %q not found", e.Code)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// InvalidModeError reports the mode mismatch.
type InvalidModeError struct {
	Code AccountCode
	Have AccountMode
	Want AccountMode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("account %q is %q, operation requires %q", e.Code, e.Have, e.Want)
}

func (e *InvalidModeError) Unwrap() error { return ErrInvalidAccountMode }

// InsufficientCreditError reports the shortfall detected by the strict guard.
type InsufficientCreditError struct {
	Code      AccountCode
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit on %q: available %s, requested %s",
		e.Code, e.Available, e.Requested)
}

func (e *InsufficientCreditError) Unwrap() error { return ErrInsufficientCredit }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSequenceConflict) ||
		errors.Is(err, ErrStaleBalanceRead)
}

// IsClientError returns true if the error is due to invalid caller input or
// a business rejection the caller must handle.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAccountMode) ||
		errors.Is(err, ErrInvalidSubType) ||
		errors.Is(err, ErrInsufficientCredit) ||
		errors.Is(err, ErrDuplicateSourceRef) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrAccountExists)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
