package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/ledger-engine/ledger"
	"github.com/cargolink/ledger-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine() *ledger.Engine {
	return ledger.NewEngine(store.NewTxMemory())
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func mustCreate(t *testing.T, e *ledger.Engine, acc ledger.Account) *ledger.Account {
	t.Helper()
	created, err := e.CreateAccount(context.Background(), acc)
	require.NoError(t, err)
	return created
}

func normalAccount(code string) ledger.Account {
	return ledger.Account{
		Code: ledger.AccountCode(code),
		Name: "Test Forwarder",
		Mode: ledger.ModeNormal,
	}
}

func tempAccount(code string) ledger.Account {
	return ledger.Account{
		Code: ledger.AccountCode(code),
		Name: "Walk-in Shipper",
		Mode: ledger.ModeTemp,
	}
}

func assertBalance(t *testing.T, e *ledger.Engine, code string, want string) {
	t.Helper()
	balance, err := e.GetAccountBalance(context.Background(), ledger.AccountCode(code))
	require.NoError(t, err)
	assert.True(t, dec(want).Equal(balance), "balance: want %s, got %s", want, balance)
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

func TestCreateAccount_DuplicateCodeRejected(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.CreateAccount(ctx, normalAccount("ACC-1"))
	assert.ErrorIs(t, err, ledger.ErrAccountExists)
}

func TestGetAccount_UnknownCode(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	_, err := engine.GetAccount(ctx, "GHOST")
	assert.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))

	var notFound *ledger.AccountNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, ledger.AccountCode("GHOST"), notFound.Code)
}

// =============================================================================
// BALANCE CHAIN - sales, payments, ordering
// =============================================================================

func TestSaleThenPayment_BalanceChains(t *testing.T) {
	// GIVEN: A fresh normal account
	// WHEN: A 1000 sale is billed and a 400 payment received
	// THEN: Each entry's opening equals the previous closing and the final
	//       balance is 600

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	sale, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1",
		AWBNo:       "AWB-100",
		Amount:      dec("1000"),
		SourceRef:   "INV-1",
	})
	require.NoError(t, err)
	assert.True(t, dec("0").Equal(sale.OpeningBalance))
	assert.True(t, dec("1000").Equal(sale.ClosingBalance))
	assert.True(t, sale.AccountLevel)

	payment, err := engine.RecordPayment(ctx, ledger.PaymentInput{
		AccountCode: "ACC-1",
		Amount:      dec("400"),
		SubType:     ledger.SubTypeReturn,
	})
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(payment.OpeningBalance))
	assert.True(t, dec("600").Equal(payment.ClosingBalance))

	assertBalance(t, engine, "ACC-1", "600")
}

func TestAmendSale_AppliesDifferenceOnce(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("1000"), SourceRef: "INV-1",
	})
	require.NoError(t, err)

	// Bill corrected downward from 1000 to 850.
	amend, err := engine.AmendSale(ctx, ledger.AmendSaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1",
		OldTotal: dec("1000"), NewTotal: dec("850"),
		SourceRef: "INV-1",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.TxSaleAmendment, amend.Kind)
	assert.True(t, dec("-150").Equal(amend.Amount))

	assertBalance(t, engine, "ACC-1", "850")
}

func TestAmendSale_ZeroDifferenceIsNoOp(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	entry, err := engine.AmendSale(ctx, ledger.AmendSaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1",
		OldTotal: dec("500"), NewTotal: dec("500"),
	})
	require.NoError(t, err)
	assert.Nil(t, entry)

	entries, err := engine.Entries(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordSale_RejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("-5"),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// ACCOUNT MODES
// =============================================================================

func TestPayment_RejectedOnTempAccount(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, tempAccount("TMP-1"))

	_, err := engine.RecordPayment(ctx, ledger.PaymentInput{
		AccountCode: "TMP-1",
		Amount:      dec("100"),
		SubType:     ledger.SubTypeReturn,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountMode)

	var modeErr *ledger.InvalidModeError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, ledger.ModeTemp, modeErr.Have)
	assert.Equal(t, ledger.ModeNormal, modeErr.Want)
}

func TestTempEntry_RejectedOnNormalAccount(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordTempEntry(ctx, ledger.TempEntryInput{
		AccountCode: "ACC-1",
		Amount:      dec("100"),
		SubType:     ledger.SubTypeGeneralEntry,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccountMode)
}

func TestTempEntry_InvertedSigns(t *testing.T) {
	// GIVEN: A temp account
	// WHEN: A 500 "Return" temp entry is recorded
	// THEN: The balance increases (inverse of the payment table)

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, tempAccount("TMP-1"))

	entry, err := engine.RecordTempEntry(ctx, ledger.TempEntryInput{
		AccountCode: "TMP-1",
		Amount:      dec("500"),
		SubType:     ledger.SubTypeReturn,
	})
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(entry.Amount))
	assertBalance(t, engine, "TMP-1", "500")
}

// =============================================================================
// RECEIPT NUMBERING
// =============================================================================

func TestReceiptNumbers_FamilyFloorsAndMonotonicity(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))
	mustCreate(t, engine, tempAccount("TMP-1"))

	p1, err := engine.RecordPayment(ctx, ledger.PaymentInput{
		AccountCode: "ACC-1", Amount: dec("10"), SubType: ledger.SubTypeReturn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), p1.ReceiptNo)
	assert.Equal(t, ledger.FamilyPayment, p1.ReceiptFamily)

	p2, err := engine.RecordPayment(ctx, ledger.PaymentInput{
		AccountCode: "ACC-1", Amount: dec("10"), SubType: ledger.SubTypeReturn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), p2.ReceiptNo)

	// Temp-credit numbering is an independent stream with its own floor.
	tc, err := engine.RecordTempEntry(ctx, ledger.TempEntryInput{
		AccountCode: "TMP-1", Amount: dec("10"), SubType: ledger.SubTypeReturn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), tc.ReceiptNo)
	assert.Equal(t, ledger.FamilyTempCredit, tc.ReceiptFamily)
}

func TestReceiptNumbers_UniqueUnderConcurrency(t *testing.T) {
	// GIVEN: Many goroutines capturing payments against different accounts
	// WHEN: They all allocate from the payment family concurrently
	// THEN: Every issued number is unique

	ctx := context.Background()
	engine := newTestEngine()

	const workers = 20
	for i := 0; i < workers; i++ {
		mustCreate(t, engine, normalAccount(fmt.Sprintf("ACC-%d", i)))
	}

	var wg sync.WaitGroup
	results := make([]int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := engine.RecordPayment(ctx, ledger.PaymentInput{
				AccountCode: ledger.AccountCode(fmt.Sprintf("ACC-%d", i)),
				Amount:      dec("10"),
				SubType:     ledger.SubTypeReturn,
			})
			require.NoError(t, err)
			results[i] = entry.ReceiptNo
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, no := range results {
		assert.False(t, seen[no], "receipt number %d issued twice", no)
		assert.GreaterOrEqual(t, no, int64(1000))
		seen[no] = true
	}
}

// =============================================================================
// NOTES - AWB-scoped dual bookkeeping
// =============================================================================

func TestApplyNote_DoesNotTouchAccountBalance(t *testing.T) {
	// GIVEN: An account with a 1000 balance from a billed shipment
	// WHEN: A credit note with two line items is applied
	// THEN: The account balance is unchanged and each line chains per AWB

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("1000"), SourceRef: "INV-1",
	})
	require.NoError(t, err)

	entries, err := engine.ApplyNote(ctx, ledger.NoteInput{
		Kind:        ledger.NoteCredit,
		AccountCode: "ACC-1",
		SourceRef:   "CN-1",
		Lines: []ledger.NoteLine{
			{AWBNo: "AWB-1", Amount: dec("200")},
			{AWBNo: "AWB-2", Amount: dec("50")},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Line 1 chains off the sale's closing for AWB-1.
	assert.True(t, dec("1000").Equal(entries[0].OpeningBalance))
	assert.True(t, dec("800").Equal(entries[0].ClosingBalance))
	assert.False(t, entries[0].AccountLevel)

	// Line 2 starts a fresh chain for AWB-2.
	assert.True(t, dec("0").Equal(entries[1].OpeningBalance))
	assert.True(t, dec("-50").Equal(entries[1].ClosingBalance))

	// Account balance untouched.
	assertBalance(t, engine, "ACC-1", "1000")
}

func TestApplyNote_LinesForSameAWBChainWithinNote(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	entries, err := engine.ApplyNote(ctx, ledger.NoteInput{
		Kind:        ledger.NoteDebit,
		AccountCode: "ACC-1",
		SourceRef:   "DN-1",
		Lines: []ledger.NoteLine{
			{AWBNo: "AWB-9", Amount: dec("100")},
			{AWBNo: "AWB-9", Amount: dec("40")},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, dec("100").Equal(entries[0].ClosingBalance))
	assert.True(t, dec("100").Equal(entries[1].OpeningBalance))
	assert.True(t, dec("140").Equal(entries[1].ClosingBalance))
}

func TestApplyNote_DuplicateSourceRefRejected(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	note := ledger.NoteInput{
		Kind:        ledger.NoteCredit,
		AccountCode: "ACC-1",
		SourceRef:   "CN-7",
		Lines:       []ledger.NoteLine{{AWBNo: "AWB-1", Amount: dec("10")}},
	}

	_, err := engine.ApplyNote(ctx, note)
	require.NoError(t, err)

	_, err = engine.ApplyNote(ctx, note)
	assert.ErrorIs(t, err, ledger.ErrDuplicateSourceRef)

	// The replay wrote nothing.
	entries, err := engine.EntriesForSource(ctx, "CN-7")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReverseNote_NonRetroactive(t *testing.T) {
	// GIVEN: A credit note followed by a later debit note on the same AWB
	// WHEN: The credit note is reversed
	// THEN: Its entries vanish but the debit note keeps the opening it was
	//       written with; downstream values are not recomputed

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.ApplyNote(ctx, ledger.NoteInput{
		Kind: ledger.NoteCredit, AccountCode: "ACC-1", SourceRef: "CN-1",
		Lines: []ledger.NoteLine{{AWBNo: "AWB-1", Amount: dec("200")}},
	})
	require.NoError(t, err)

	_, err = engine.ApplyNote(ctx, ledger.NoteInput{
		Kind: ledger.NoteDebit, AccountCode: "ACC-1", SourceRef: "DN-1",
		Lines: []ledger.NoteLine{{AWBNo: "AWB-1", Amount: dec("30")}},
	})
	require.NoError(t, err)

	deleted, err := engine.ReverseNote(ctx, "CN-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	chain, err := engine.EntriesForAWB(ctx, "ACC-1", "AWB-1")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, ledger.TxDebitNote, chain[0].Kind)
	// Opening still reflects the deleted note's closing (-200).
	assert.True(t, dec("-200").Equal(chain[0].OpeningBalance))
	assert.True(t, dec("-170").Equal(chain[0].ClosingBalance))
}

func TestReverseNote_UnknownRefDeletesNothing(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	deleted, err := engine.ReverseNote(ctx, "CN-MISSING")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestReverseNote_DoesNotDeleteAccountLevelEntries(t *testing.T) {
	// A sale and a note can share a source reference; reversal must only
	// remove the note's fan-out.

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("100"), SourceRef: "DOC-1",
	})
	require.NoError(t, err)

	deleted, err := engine.ReverseNote(ctx, "DOC-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	entries, err := engine.Entries(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// GUARD POLICIES
// =============================================================================

func TestGuardStrict_RejectsOverLimitAndPlacesHold(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	acc := normalAccount("ACC-1")
	acc.CreditLimit = dec("500")
	mustCreate(t, engine, acc)

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("800"),
		SourceRef: "INV-1", Guard: ledger.GuardStrict,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredit)

	var credErr *ledger.InsufficientCreditError
	require.ErrorAs(t, err, &credErr)
	assert.True(t, dec("500").Equal(credErr.Available))
	assert.True(t, dec("800").Equal(credErr.Requested))

	// The rejected charge wrote nothing but the hold was placed.
	assertBalance(t, engine, "ACC-1", "0")
	got, err := engine.GetAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.True(t, got.CreditHold)

	entries, err := engine.Entries(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGuardStrict_WithinLimitConsumesIt(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	acc := normalAccount("ACC-1")
	acc.CreditLimit = dec("500")
	mustCreate(t, engine, acc)

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("300"),
		SourceRef: "INV-1", Guard: ledger.GuardStrict,
	})
	require.NoError(t, err)

	got, err := engine.GetAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.True(t, dec("200").Equal(got.CreditLimit))
	assertBalance(t, engine, "ACC-1", "300")
}

func TestGuardPermissive_AppliesAndReleasesHold(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	acc := normalAccount("ACC-1")
	acc.CreditLimit = dec("100")
	mustCreate(t, engine, acc)

	// Strict rejection places the hold.
	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("800"),
		SourceRef: "INV-1", Guard: ledger.GuardStrict,
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientCredit)

	// Permissive charge goes through despite the limit and lifts the hold.
	_, err = engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("800"),
		SourceRef: "INV-1b", Guard: ledger.GuardPermissive,
	})
	require.NoError(t, err)

	got, err := engine.GetAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.False(t, got.CreditHold)
	assert.True(t, dec("-700").Equal(got.CreditLimit))
	assertBalance(t, engine, "ACC-1", "800")
}

func TestGuard_UnsetFallsBackToAccountDefault(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()

	acc := normalAccount("ACC-1")
	acc.CreditLimit = dec("100")
	acc.GuardDefault = ledger.GuardStrict
	mustCreate(t, engine, acc)

	_, err := engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("200"), SourceRef: "INV-1",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredit)

	// Explicit "none" overrides the strict default.
	_, err = engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("200"),
		SourceRef: "INV-2", Guard: ledger.GuardNone,
	})
	assert.NoError(t, err)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func TestAdjustment_ExplicitDirections(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	_, err := engine.RecordAdjustment(ctx, ledger.AdjustmentInput{
		AccountCode: "ACC-1", DebitAmount: decPtr("250"), Remark: "opening balance",
	})
	require.NoError(t, err)
	assertBalance(t, engine, "ACC-1", "250")

	_, err = engine.RecordAdjustment(ctx, ledger.AdjustmentInput{
		AccountCode: "ACC-1", CreditAmount: decPtr("50"),
	})
	require.NoError(t, err)
	assertBalance(t, engine, "ACC-1", "200")

	_, err = engine.RecordAdjustment(ctx, ledger.AdjustmentInput{AccountCode: "ACC-1"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

// =============================================================================
// CONCURRENCY - chain continuity under parallel writers
// =============================================================================

func TestConcurrentSales_ChainHasNoGapsOrOverlaps(t *testing.T) {
	// GIVEN: 50 concurrent sales of 10 against one account
	// WHEN: They all commit
	// THEN: The final balance is 500 and every entry's opening equals the
	//       previous entry's closing

	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.RecordSale(ctx, ledger.SaleInput{
				AccountCode: "ACC-1",
				AWBNo:       ledger.AWBNo(fmt.Sprintf("AWB-%d", i)),
				Amount:      dec("10"),
				SourceRef:   fmt.Sprintf("INV-%d", i),
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assertBalance(t, engine, "ACC-1", "500")

	entries, err := engine.Entries(ctx, "ACC-1")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].ClosingBalance.Equal(entries[i].OpeningBalance),
			"entry %d opening %s does not continue previous closing %s",
			i, entries[i].OpeningBalance, entries[i-1].ClosingBalance)
	}
}

// =============================================================================
// AWB CHAIN TAIL
// =============================================================================

func TestGetAwbChainTail(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine()
	mustCreate(t, engine, normalAccount("ACC-1"))

	tail, err := engine.GetAwbChainTail(ctx, "ACC-1", "AWB-1")
	require.NoError(t, err)
	assert.True(t, tail.IsZero())

	_, err = engine.RecordSale(ctx, ledger.SaleInput{
		AccountCode: "ACC-1", AWBNo: "AWB-1", Amount: dec("1000"), SourceRef: "INV-1",
	})
	require.NoError(t, err)

	_, err = engine.ApplyNote(ctx, ledger.NoteInput{
		Kind: ledger.NoteCredit, AccountCode: "ACC-1", SourceRef: "CN-1",
		Lines: []ledger.NoteLine{{AWBNo: "AWB-1", Amount: dec("250")}},
	})
	require.NoError(t, err)

	tail, err = engine.GetAwbChainTail(ctx, "ACC-1", "AWB-1")
	require.NoError(t, err)
	assert.True(t, dec("750").Equal(tail))
}
