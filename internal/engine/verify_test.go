package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundflow/internal/testutil"
)

func TestVerifyBalancesCleanDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	source := db.MustCreateFund("Checking", "1000.00")
	dest := db.MustCreateFund("Savings", "500.00")
	cat := db.MustCreateCategory("Transfers")

	eng := New(db.Storage, DirectResolver{})

	_, err := eng.CreateExpense(ctx, CreateExpenseInput{
		CategoryID:        cat.ID,
		SourceFundID:      &source.ID,
		DestinationFundID: &dest.ID,
		Amount:            money(t, "250.00"),
	})
	require.NoError(t, err)

	summaries, err := eng.VerifyBalances(ctx, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, summary := range summaries {
		assert.True(t, summary.Drift().IsZero(),
			"fund %s drifted: recorded %s computed %s",
			summary.FundName, summary.RecordedBalance, summary.ComputedBalance)
	}
}

func TestVerifyBalancesDetectsDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	fund := db.MustCreateFund("Checking", "1000.00")
	cat := db.MustCreateCategory("Misc")

	eng := New(db.Storage, DirectResolver{})

	_, err := eng.CreateExpense(ctx, CreateExpenseInput{
		CategoryID:   cat.ID,
		SourceFundID: &fund.ID,
		Amount:       money(t, "100.00"),
	})
	require.NoError(t, err)

	// Corrupt the cache behind the engine's back.
	require.NoError(t, db.Storage.SetBalance(ctx, fund.ID, money(t, "777.00")))

	summaries, err := eng.VerifyBalances(ctx, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	drift := summaries[0].Drift()
	assert.False(t, drift.IsZero())
	assert.True(t, summaries[0].ComputedBalance.Equal(money(t, "900.00")))
	assert.True(t, summaries[0].RecordedBalance.Equal(money(t, "777.00")))
}

func TestRepairBalances(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	drifted := db.MustCreateFund("Drifted", "1000.00")
	clean := db.MustCreateFund("Clean", "200.00")
	cat := db.MustCreateCategory("Misc")

	eng := New(db.Storage, DirectResolver{})

	_, err := eng.CreateExpense(ctx, CreateExpenseInput{
		CategoryID:   cat.ID,
		SourceFundID: &drifted.ID,
		Amount:       money(t, "100.00"),
	})
	require.NoError(t, err)

	require.NoError(t, db.Storage.SetBalance(ctx, drifted.ID, money(t, "1.00")))

	repaired, err := eng.RepairBalances(ctx, nil)
	require.NoError(t, err)
	require.Len(t, repaired, 1, "only the drifted fund should be repaired")
	assert.Equal(t, drifted.ID, repaired[0].FundID)

	assert.True(t, db.MustBalance(drifted.ID).Equal(money(t, "900.00")))
	assert.True(t, db.MustBalance(clean.ID).Equal(money(t, "200.00")))

	// A second audit finds nothing.
	repaired, err = eng.RepairBalances(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, repaired)
}

func TestVerifyBalancesReportsProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	db.MustCreateFund("A", "0")
	db.MustCreateFund("B", "0")
	db.MustCreateFund("C", "0")

	eng := New(db.Storage, DirectResolver{})

	var calls, lastDone, lastTotal int
	_, err := eng.VerifyBalances(ctx, func(done, total int) {
		calls++
		lastDone = done
		lastTotal = total
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, lastDone)
	assert.Equal(t, 3, lastTotal)
}
