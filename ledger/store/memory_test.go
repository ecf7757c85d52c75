package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargolink/ledger-engine/ledger"
)

func TestWithTx_SnapshotRollback(t *testing.T) {
	// GIVEN: A store with one account
	// WHEN: A transaction mutates the account and appends an entry, then fails
	// THEN: The snapshot is restored and neither write survives

	ctx := context.Background()
	mem := NewTxMemory()
	require.NoError(t, mem.CreateAccount(ctx, ledger.Account{
		Code: "ACC-1", Mode: ledger.ModeNormal, Version: 1,
	}))

	err := mem.WithTx(ctx, func(s ledger.Store) error {
		acc, err := s.GetAccount(ctx, "ACC-1")
		if err != nil {
			return err
		}
		acc.CurrentBalance = decimal.NewFromInt(500)
		if err := s.UpdateAccount(ctx, *acc); err != nil {
			return err
		}
		if err := s.AppendEntry(ctx, ledger.Entry{
			ID: "e1", AccountCode: "ACC-1", Kind: ledger.TxSale,
		}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	acc, err := mem.GetAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.True(t, acc.CurrentBalance.IsZero())
	assert.Equal(t, int64(1), acc.Version)

	entries, err := mem.EntriesByAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendEntries_BatchReceiptCollisionIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	batch := []ledger.Entry{
		{ID: "e1", AccountCode: "ACC-1", Kind: ledger.TxPayment,
			ReceiptFamily: ledger.FamilyPayment, ReceiptNo: 1000},
		{ID: "e2", AccountCode: "ACC-1", Kind: ledger.TxPayment,
			ReceiptFamily: ledger.FamilyPayment, ReceiptNo: 1000},
	}

	err := mem.AppendEntries(ctx, batch)
	assert.ErrorIs(t, err, ledger.ErrSequenceConflict)

	entries, err := mem.EntriesByAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Empty(t, entries, "batch should be atomic, nothing added on failure")
}
