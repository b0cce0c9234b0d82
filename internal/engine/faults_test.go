package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundflow/internal/model"
	"fundflow/internal/service"
	"fundflow/internal/testutil"
)

var errDiskFault = errors.New("disk I/O error")

// failingAdjustStore wraps a real store and fails AdjustBalance for one fund,
// simulating a storage fault partway through a balance sequence.
type failingAdjustStore struct {
	service.Storage
	fundID int64
}

func (s *failingAdjustStore) BeginTx(ctx context.Context) (service.Transaction, error) {
	tx, err := s.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &failingAdjustTx{Transaction: tx, fundID: s.fundID}, nil
}

type failingAdjustTx struct {
	service.Transaction
	fundID int64
}

func (t *failingAdjustTx) AdjustBalance(ctx context.Context, fundID int64, delta decimal.Decimal) error {
	if fundID == t.fundID {
		return errDiskFault
	}
	return t.Transaction.AdjustBalance(ctx, fundID, delta)
}

func TestCreateExpenseStorageFailureRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	source := db.MustCreateFund("Checking", "1000.00")
	dest := db.MustCreateFund("Savings", "500.00")
	cat := db.MustCreateCategory("Transfers")

	// The record insert and the source debit succeed; the destination credit
	// fails mid-sequence.
	eng := New(&failingAdjustStore{Storage: db.Storage, fundID: dest.ID}, DirectResolver{})

	_, err := eng.CreateExpense(ctx, CreateExpenseInput{
		CategoryID:        cat.ID,
		SourceFundID:      &source.ID,
		DestinationFundID: &dest.ID,
		Amount:            money(t, "200.00"),
	})

	var consistencyErr *ConsistencyError
	require.ErrorAs(t, err, &consistencyErr)
	assert.Equal(t, "create", consistencyErr.Op)
	assert.ErrorIs(t, err, errDiskFault)

	// Rollback leaves no trace: no record, both balances unchanged.
	expenses, err := db.Storage.GetExpenses(ctx, service.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, expenses)
	assert.True(t, db.MustBalance(source.ID).Equal(money(t, "1000.00")))
	assert.True(t, db.MustBalance(dest.ID).Equal(money(t, "500.00")))
}

func TestUpdateExpenseStorageFailureRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	source := db.MustCreateFund("Checking", "1000.00")
	dest := db.MustCreateFund("Savings", "500.00")
	cat := db.MustCreateCategory("Misc")

	expense, err := New(db.Storage, DirectResolver{}).CreateExpense(ctx, CreateExpenseInput{
		CategoryID:   cat.ID,
		SourceFundID: &source.ID,
		Amount:       money(t, "50.00"),
	})
	require.NoError(t, err)
	require.True(t, db.MustBalance(source.ID).Equal(money(t, "950.00")))

	// The update adds a destination whose credit fails after the old effect
	// was reverted and the new record written.
	eng := New(&failingAdjustStore{Storage: db.Storage, fundID: dest.ID}, DirectResolver{})

	_, _, err = eng.UpdateExpense(ctx, expense.ID, model.ExpenseUpdate{DestinationFundID: &dest.ID})

	var consistencyErr *ConsistencyError
	require.ErrorAs(t, err, &consistencyErr)
	assert.Equal(t, "update", consistencyErr.Op)
	assert.Equal(t, expense.ID, consistencyErr.ExpenseID)

	// The stored record and every balance are exactly as before the attempt.
	got, err := db.Storage.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DestinationFundID)
	assert.True(t, got.Amount.Equal(money(t, "50.00")))
	assert.True(t, db.MustBalance(source.ID).Equal(money(t, "950.00")))
	assert.True(t, db.MustBalance(dest.ID).Equal(money(t, "500.00")))
}

func TestDeleteExpenseStorageFailureRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	source := db.MustCreateFund("Checking", "1000.00")
	cat := db.MustCreateCategory("Misc")

	expense, err := New(db.Storage, DirectResolver{}).CreateExpense(ctx, CreateExpenseInput{
		CategoryID:   cat.ID,
		SourceFundID: &source.ID,
		Amount:       money(t, "50.00"),
	})
	require.NoError(t, err)

	eng := New(&failingAdjustStore{Storage: db.Storage, fundID: source.ID}, DirectResolver{})

	_, err = eng.DeleteExpense(ctx, expense.ID)

	var consistencyErr *ConsistencyError
	require.ErrorAs(t, err, &consistencyErr)
	assert.Equal(t, "delete", consistencyErr.Op)

	// The record survives and the balance still carries its debit.
	_, err = db.Storage.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.True(t, db.MustBalance(source.ID).Equal(money(t, "950.00")))
}

func TestConcurrentCreatesSerializeBalanceUpdates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	fund := db.MustCreateFund("Checking", "1000.00")
	cat := db.MustCreateCategory("Misc")

	eng := New(db.Storage, DirectResolver{})

	const workers = 10
	amount := money(t, "10.00")
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.CreateExpense(ctx, CreateExpenseInput{
				CategoryID:   cat.ID,
				SourceFundID: &fund.ID,
				Amount:       amount,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Every debit lands exactly once regardless of interleaving.
	assert.True(t, db.MustBalance(fund.ID).Equal(money(t, "900.00")),
		"balance = %s, want 900.00", db.MustBalance(fund.ID))

	count, err := db.Storage.CountExpensesByFund(ctx, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}
