/*
engine.go - The operations exposed to the surrounding system

PURPOSE:
  One entry point per producing collaborator: shipment billing (RecordSale,
  AmendSale), payment capture (RecordPayment), temp-account funding
  (RecordTempEntry), note issuance (ApplyNote / ReverseNote), and manual
  corrections (RecordAdjustment). Plus the read surface: balances, AWB chain
  tails, and entry queries.

FLOW FOR BALANCE-AFFECTING OPERATIONS:
  1. Derive the signed delta from the rules table (rules.go)
  2. Acquire the account's lock (mutator.go)
  3. Inside one store transaction:
     a. apply the delta to the account (opening/closing snapshot)
     b. allocate a receipt number when the kind is numbered
     c. append the immutable entry carrying the snapshot
  4. Retry the whole transaction on transient conflicts
  5. Publish an entry-committed event (best effort)

FLOW FOR NOTES:
  Note lines chain off the last entry for their specific AWB, not the
  account balance. They are written as entries but never call the balance
  mutator - the account's authoritative balance is untouched. This dual
  bookkeeping is deliberate and load-bearing for downstream reports.

SEE ALSO:
  - rules.go: sign/magnitude derivation
  - mutator.go: serialization and snapshotting
  - sequence.go: receipt numbering
*/
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/ledger-engine/events"
)

// maxTxRetries bounds retries of transient conflicts (sequence collisions,
// stale balance reads) before surfacing the error to the caller.
const maxTxRetries = 3

// Engine is the ledger and balance consistency engine.
type Engine struct {
	store   TxStore
	mutator *BalanceMutator
	seq     *SequenceGenerator
	log     *logrus.Logger
	pub     events.Publisher
}

// NewEngine creates an engine over the given store with a no-op publisher
// and a default logger.
func NewEngine(store TxStore) *Engine {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	return &Engine{
		store:   store,
		mutator: NewBalanceMutator(),
		seq:     NewSequenceGenerator(),
		log:     log,
		pub:     events.Nop{},
	}
}

// WithLogger replaces the engine's logger.
func (e *Engine) WithLogger(log *logrus.Logger) *Engine {
	if log != nil {
		e.log = log
	}
	return e
}

// WithPublisher replaces the engine's event publisher.
func (e *Engine) WithPublisher(pub events.Publisher) *Engine {
	if pub != nil {
		e.pub = pub
	}
	return e
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// CreateAccount onboards a new customer account. Mode defaults to "normal".
func (e *Engine) CreateAccount(ctx context.Context, acc Account) (*Account, error) {
	if acc.Code == "" {
		return nil, fmt.Errorf("account code is required: %w", ErrInvalidAmount)
	}
	if acc.Mode == "" {
		acc.Mode = ModeNormal
	}
	if acc.Mode != ModeNormal && acc.Mode != ModeTemp {
		return nil, fmt.Errorf("unknown account mode %q", acc.Mode)
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = Now()
	}
	acc.Version = 1

	if err := e.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetAccount resolves an account or fails with AccountNotFound.
func (e *Engine) GetAccount(ctx context.Context, code AccountCode) (*Account, error) {
	acc, err := e.store.GetAccount(ctx, code)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, &AccountNotFoundError{Code: code}
	}
	return acc, nil
}

// ListAccounts returns all accounts.
func (e *Engine) ListAccounts(ctx context.Context) ([]Account, error) {
	return e.store.ListAccounts(ctx)
}

// GetAccountBalance returns the account's authoritative running balance.
func (e *Engine) GetAccountBalance(ctx context.Context, code AccountCode) (decimal.Decimal, error) {
	acc, err := e.GetAccount(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.CurrentBalance, nil
}

// GetAwbChainTail returns the closing value of the most recent entry for
// (account, AWB), or zero when the AWB has no ledger presence.
func (e *Engine) GetAwbChainTail(ctx context.Context, code AccountCode, awb AWBNo) (decimal.Decimal, error) {
	if _, err := e.GetAccount(ctx, code); err != nil {
		return decimal.Zero, err
	}
	last, err := e.store.LastEntryForAWB(ctx, code, awb)
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.ClosingBalance, nil
}

// =============================================================================
// SALES (shipment billing)
// =============================================================================

// SaleInput bills a shipment charge against an account.
type SaleInput struct {
	AccountCode AccountCode
	AWBNo       AWBNo
	Amount      decimal.Decimal
	Remark      string
	SourceRef   string // invoice number
	Guard       GuardPolicy
}

// RecordSale increases the account balance by the billed total.
func (e *Engine) RecordSale(ctx context.Context, in SaleInput) (*Entry, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("sale amount must be positive: %w", ErrInvalidAmount)
	}
	delta, err := Effect(EffectInput{Kind: TxSale, Amount: in.Amount})
	if err != nil {
		return nil, err
	}
	return e.commitAccountEntry(ctx, accountEntrySpec{
		code:      in.AccountCode,
		awb:       in.AWBNo,
		kind:      TxSale,
		delta:     delta,
		remark:    in.Remark,
		sourceRef: in.SourceRef,
		guard:     in.Guard,
	})
}

// AmendSaleInput corrects an already billed shipment charge.
type AmendSaleInput struct {
	AccountCode AccountCode
	AWBNo       AWBNo
	OldTotal    decimal.Decimal
	NewTotal    decimal.Decimal
	Remark      string
	SourceRef   string
	Guard       GuardPolicy
}

// AmendSale applies the difference between the new and old billed totals,
// once. A zero difference is a no-op and returns no entry.
func (e *Engine) AmendSale(ctx context.Context, in AmendSaleInput) (*Entry, error) {
	delta := in.NewTotal.Sub(in.OldTotal)
	if delta.IsZero() {
		return nil, nil
	}
	return e.commitAccountEntry(ctx, accountEntrySpec{
		code:      in.AccountCode,
		awb:       in.AWBNo,
		kind:      TxSaleAmendment,
		delta:     delta,
		remark:    in.Remark,
		sourceRef: in.SourceRef,
		guard:     in.Guard,
	})
}

// =============================================================================
// PAYMENTS AND TEMP ENTRIES (numbered receipts)
// =============================================================================

// PaymentInput captures a receipt against a normal-mode account.
type PaymentInput struct {
	AccountCode AccountCode
	Amount      decimal.Decimal
	SubType     ReceiptSubType
	Remark      string

	// Explicit overrides; when set they win over the sub-type table.
	DebitAmount  *decimal.Decimal
	CreditAmount *decimal.Decimal
}

// RecordPayment writes a numbered receipt entry. The account must be in
// normal mode.
func (e *Engine) RecordPayment(ctx context.Context, in PaymentInput) (*Entry, error) {
	delta, err := Effect(EffectInput{
		Kind:         TxPayment,
		Amount:       in.Amount,
		SubType:      in.SubType,
		DebitAmount:  in.DebitAmount,
		CreditAmount: in.CreditAmount,
	})
	if err != nil {
		return nil, err
	}
	return e.commitAccountEntry(ctx, accountEntrySpec{
		code:   in.AccountCode,
		kind:   TxPayment,
		delta:  delta,
		remark: in.Remark,
		family: FamilyPayment,
		guard:  GuardNone,
	})
}

// TempEntryInput records a pre-funding entry on a temp-mode account.
type TempEntryInput struct {
	AccountCode AccountCode
	Amount      decimal.Decimal
	SubType     ReceiptSubType
	Remark      string

	// Explicit debit adds, explicit credit subtracts, regardless of sub-type.
	DebitAmount  *decimal.Decimal
	CreditAmount *decimal.Decimal
}

// RecordTempEntry writes a numbered temp-credit entry. The account must be
// in temp mode.
func (e *Engine) RecordTempEntry(ctx context.Context, in TempEntryInput) (*Entry, error) {
	delta, err := Effect(EffectInput{
		Kind:         TxTempCredit,
		Amount:       in.Amount,
		SubType:      in.SubType,
		DebitAmount:  in.DebitAmount,
		CreditAmount: in.CreditAmount,
	})
	if err != nil {
		return nil, err
	}
	return e.commitAccountEntry(ctx, accountEntrySpec{
		code:   in.AccountCode,
		kind:   TxTempCredit,
		delta:  delta,
		remark: in.Remark,
		family: FamilyTempCredit,
		guard:  GuardNone,
	})
}

// =============================================================================
// MANUAL ADJUSTMENTS
// =============================================================================

// AdjustmentInput is an ad-hoc ledger correction with an explicit direction.
type AdjustmentInput struct {
	AccountCode  AccountCode
	DebitAmount  *decimal.Decimal
	CreditAmount *decimal.Decimal
	Remark       string
	SourceRef    string
}

// RecordAdjustment applies a manual debit (adds) or credit (subtracts).
func (e *Engine) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*Entry, error) {
	delta, err := Effect(EffectInput{
		Kind:         TxAdjustment,
		DebitAmount:  in.DebitAmount,
		CreditAmount: in.CreditAmount,
	})
	if err != nil {
		return nil, err
	}
	return e.commitAccountEntry(ctx, accountEntrySpec{
		code:      in.AccountCode,
		kind:      TxAdjustment,
		delta:     delta,
		remark:    in.Remark,
		sourceRef: in.SourceRef,
		guard:     GuardNone,
	})
}

// =============================================================================
// NOTES (AWB-scoped corrective documents)
// =============================================================================

// NoteInput fans a credit or debit note out into one entry per line item.
type NoteInput struct {
	Kind        NoteKind
	AccountCode AccountCode
	Lines       []NoteLine
	SourceRef   string // note number
	Remark      string
}

// ApplyNote writes one AWB-scoped entry per line item. Each entry chains off
// the last entry for its specific AWB (opening zero when none exists) and
// never touches Account.CurrentBalance. Replaying the same source reference
// is rejected with ErrDuplicateSourceRef.
func (e *Engine) ApplyNote(ctx context.Context, in NoteInput) ([]Entry, error) {
	var kind TxKind
	switch in.Kind {
	case NoteCredit:
		kind = TxCreditNote
	case NoteDebit:
		kind = TxDebitNote
	default:
		return nil, fmt.Errorf("unknown note kind %q", in.Kind)
	}
	if in.SourceRef == "" {
		return nil, fmt.Errorf("note source reference is required: %w", ErrInvalidAmount)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("note has no line items: %w", ErrInvalidAmount)
	}
	for _, line := range in.Lines {
		if !line.Amount.IsPositive() {
			return nil, fmt.Errorf("note line for AWB %q: %w", line.AWBNo, ErrInvalidAmount)
		}
	}

	// The account lock covers the source-ref check-then-insert race.
	unlock := e.mutator.Acquire(in.AccountCode)
	defer unlock()

	var entries []Entry
	err := e.store.WithTx(ctx, func(s Store) error {
		acc, err := s.GetAccount(ctx, in.AccountCode)
		if err != nil {
			return err
		}
		if acc == nil {
			return &AccountNotFoundError{Code: in.AccountCode}
		}

		dup, err := s.HasSourceRef(ctx, in.SourceRef)
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("note %q: %w", in.SourceRef, ErrDuplicateSourceRef)
		}

		entries = entries[:0]
		for _, line := range in.Lines {
			delta, err := Effect(EffectInput{Kind: kind, Amount: line.Amount})
			if err != nil {
				return err
			}

			opening := decimal.Zero
			// Lines in the same note targeting the same AWB chain onto each
			// other before falling back to the stored tail.
			if prev := lastForAWB(entries, line.AWBNo); prev != nil {
				opening = prev.ClosingBalance
			} else {
				last, err := s.LastEntryForAWB(ctx, in.AccountCode, line.AWBNo)
				if err != nil {
					return err
				}
				if last != nil {
					opening = last.ClosingBalance
				}
			}

			entries = append(entries, Entry{
				ID:             newEntryID(),
				AccountCode:    in.AccountCode,
				AWBNo:          line.AWBNo,
				Kind:           kind,
				Amount:         delta,
				OpeningBalance: opening,
				ClosingBalance: opening.Add(delta),
				AccountLevel:   kind.accountLevel(),
				Remark:         in.Remark,
				SourceRef:      in.SourceRef,
				CreatedAt:      Now(),
			})
		}
		return s.AppendEntries(ctx, entries)
	})
	if err != nil {
		return nil, err
	}

	for i := range entries {
		e.publishEntry(entries[i])
	}
	return entries, nil
}

// ReverseNote deletes the fan-out entries of a deleted note by its source
// reference. It does NOT recompute the account balance or any downstream
// AWB-chain entries; later entries keep the openings they were written with.
func (e *Engine) ReverseNote(ctx context.Context, sourceRef string) (int64, error) {
	var deleted int64
	err := e.store.WithTx(ctx, func(s Store) error {
		existing, err := s.EntriesBySourceRef(ctx, sourceRef)
		if err != nil {
			return err
		}

		var awbs []AWBNo
		for _, entry := range existing {
			if entry.Kind == TxCreditNote || entry.Kind == TxDebitNote {
				awbs = append(awbs, entry.AWBNo)
			}
		}
		if len(awbs) == 0 {
			deleted = 0
			return nil
		}

		deleted, err = s.DeleteBySourceRef(ctx, sourceRef, awbs)
		return err
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		e.log.WithFields(logrus.Fields{
			"source_ref": sourceRef,
			"deleted":    deleted,
		}).Info("note reversed")
	}
	return deleted, nil
}

// =============================================================================
// ENTRY QUERIES
// =============================================================================

// Entries returns every ledger entry for an account in commit order.
func (e *Engine) Entries(ctx context.Context, code AccountCode) ([]Entry, error) {
	if _, err := e.GetAccount(ctx, code); err != nil {
		return nil, err
	}
	return e.store.EntriesByAccount(ctx, code)
}

// EntriesForAWB returns the (account, AWB) entry chain in commit order.
func (e *Engine) EntriesForAWB(ctx context.Context, code AccountCode, awb AWBNo) ([]Entry, error) {
	if _, err := e.GetAccount(ctx, code); err != nil {
		return nil, err
	}
	return e.store.EntriesByAWB(ctx, code, awb)
}

// EntriesForSource returns every entry referencing a source document.
func (e *Engine) EntriesForSource(ctx context.Context, sourceRef string) ([]Entry, error) {
	return e.store.EntriesBySourceRef(ctx, sourceRef)
}

// =============================================================================
// SHARED COMMIT PATH
// =============================================================================

type accountEntrySpec struct {
	code      AccountCode
	awb       AWBNo
	kind      TxKind
	delta     decimal.Decimal
	remark    string
	sourceRef string
	family    SequenceFamily // allocate a receipt number when set
	guard     GuardPolicy
}

// commitAccountEntry runs the serialized read-apply-append cycle for an
// account-level entry, retrying transient conflicts.
func (e *Engine) commitAccountEntry(ctx context.Context, spec accountEntrySpec) (*Entry, error) {
	unlock := e.mutator.Acquire(spec.code)
	defer unlock()

	var entry Entry
	err := e.withRetry(ctx, func() error {
		return e.store.WithTx(ctx, func(s Store) error {
			snap, _, err := e.mutator.ApplyAccountDelta(ctx, s, spec.code, spec.delta, ApplyOptions{
				RequireMode: requiredMode(spec.kind),
				Guard:       spec.guard,
			})
			if err != nil {
				return err
			}

			entry = Entry{
				ID:             newEntryID(),
				AccountCode:    spec.code,
				AWBNo:          spec.awb,
				Kind:           spec.kind,
				Amount:         spec.delta,
				OpeningBalance: snap.Opening,
				ClosingBalance: snap.Closing,
				AccountLevel:   spec.kind.accountLevel(),
				Remark:         spec.remark,
				SourceRef:      spec.sourceRef,
				CreatedAt:      Now(),
			}

			if spec.family != "" {
				no, err := e.seq.Next(ctx, s, spec.family)
				if err != nil {
					return err
				}
				entry.ReceiptFamily = spec.family
				entry.ReceiptNo = no
			}

			return s.AppendEntry(ctx, entry)
		})
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredit) {
			e.placeCreditHold(ctx, spec.code)
		}
		return nil, err
	}

	e.publishEntry(entry)
	return &entry, nil
}

// withRetry re-runs fn on transient conflicts up to maxTxRetries times.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("transient conflict, retrying")
	}
	return err
}

// placeCreditHold marks the account as held after a strict-guard rejection.
// Runs outside the rolled-back transaction; best effort.
func (e *Engine) placeCreditHold(ctx context.Context, code AccountCode) {
	err := e.store.WithTx(ctx, func(s Store) error {
		acc, err := s.GetAccount(ctx, code)
		if err != nil || acc == nil || acc.CreditHold {
			return err
		}
		acc.CreditHold = true
		return s.UpdateAccount(ctx, *acc)
	})
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"account": code,
			"error":   err.Error(),
		}).Warn("failed to place credit hold")
	}
}

func (e *Engine) publishEntry(entry Entry) {
	event := events.EntryCommitted{
		EntryID:        string(entry.ID),
		AccountCode:    string(entry.AccountCode),
		AWBNo:          string(entry.AWBNo),
		Kind:           string(entry.Kind),
		Amount:         entry.Amount,
		ClosingBalance: entry.ClosingBalance,
		AccountLevel:   entry.AccountLevel,
		SourceRef:      entry.SourceRef,
		ReceiptNo:      entry.ReceiptNo,
		OccurredAt:     entry.CreatedAt,
	}
	if err := e.pub.Publish(events.TopicEntryCommitted, event); err != nil {
		e.log.WithFields(logrus.Fields{
			"entry": entry.ID,
			"error": err.Error(),
		}).Warn("failed to publish entry event")
	}
}

func newEntryID() EntryID {
	return EntryID(uuid.NewString())
}

func lastForAWB(entries []Entry, awb AWBNo) *Entry {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].AWBNo == awb {
			return &entries[i]
		}
	}
	return nil
}
