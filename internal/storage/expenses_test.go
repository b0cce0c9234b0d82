package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"fundflow/internal/common"
	"fundflow/internal/model"
	"fundflow/internal/service"
)

type expenseFixture struct {
	store  *SQLiteStorage
	catID  int64
	fundID int64
	destID int64
}

func setupExpenseFixture(t *testing.T) expenseFixture {
	t.Helper()
	store := createTestStorage(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, "Groceries", "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	fund, err := store.CreateFund(ctx, "Checking", "", mustDecimal(t, "1000.00"))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}
	dest, err := store.CreateFund(ctx, "Savings", "", mustDecimal(t, "500.00"))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	return expenseFixture{store: store, catID: cat.ID, fundID: fund.ID, destID: dest.ID}
}

func (f expenseFixture) newExpense(t *testing.T, id, amount string, date time.Time) *model.Expense {
	t.Helper()
	return &model.Expense{
		ID:           id,
		CategoryID:   f.catID,
		SourceFundID: f.fundID,
		Amount:       mustDecimal(t, amount),
		Date:         date,
		Description:  "test expense " + id,
	}
}

func TestSQLiteStorage_InsertAndGetExpense(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	expense := f.newExpense(t, "exp-1", "42.50", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	expense.DestinationFundID = &f.destID
	expense.PaymentMethod = "card"

	if err := f.store.InsertExpense(ctx, expense); err != nil {
		t.Fatalf("InsertExpense failed: %v", err)
	}

	got, err := f.store.GetExpense(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}

	if !got.Amount.Equal(mustDecimal(t, "42.50")) {
		t.Errorf("amount = %s, want 42.50", got.Amount)
	}
	if got.DestinationFundID == nil || *got.DestinationFundID != f.destID {
		t.Errorf("destination = %v, want %d", got.DestinationFundID, f.destID)
	}
	if got.PaymentMethod != "card" {
		t.Errorf("payment method = %q, want card", got.PaymentMethod)
	}
	if !got.IsTransfer() {
		t.Error("expense with destination should be a transfer")
	}
}

func TestSQLiteStorage_InsertExpenseValidation(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.Expense)
		name   string
	}{
		{name: "empty ID", mutate: func(e *model.Expense) { e.ID = "" }},
		{name: "zero amount", mutate: func(e *model.Expense) { e.Amount = mustDecimal(t, "0") }},
		{name: "negative amount", mutate: func(e *model.Expense) { e.Amount = mustDecimal(t, "-5.00") }},
		{name: "sub-cent amount", mutate: func(e *model.Expense) { e.Amount = mustDecimal(t, "1.005") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expense := f.newExpense(t, "exp-bad", "10.00", time.Now())
			tt.mutate(expense)
			if err := f.store.InsertExpense(ctx, expense); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSQLiteStorage_UpdateExpense(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	expense := f.newExpense(t, "exp-u", "10.00", time.Now())
	if err := f.store.InsertExpense(ctx, expense); err != nil {
		t.Fatalf("InsertExpense failed: %v", err)
	}

	expense.Amount = mustDecimal(t, "35.00")
	expense.Description = "rewritten"
	expense.DestinationFundID = &f.destID
	if err := f.store.UpdateExpense(ctx, expense); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	got, err := f.store.GetExpense(ctx, "exp-u")
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if !got.Amount.Equal(mustDecimal(t, "35.00")) || got.Description != "rewritten" {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.DestinationFundID == nil || *got.DestinationFundID != f.destID {
		t.Errorf("destination = %v, want %d", got.DestinationFundID, f.destID)
	}

	missing := f.newExpense(t, "exp-missing", "1.00", time.Now())
	if err := f.store.UpdateExpense(ctx, missing); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_DeleteExpense(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	expense := f.newExpense(t, "exp-d", "5.00", time.Now())
	if err := f.store.InsertExpense(ctx, expense); err != nil {
		t.Fatalf("InsertExpense failed: %v", err)
	}

	if err := f.store.DeleteExpense(ctx, "exp-d"); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if _, err := f.store.GetExpense(ctx, "exp-d"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := f.store.DeleteExpense(ctx, "exp-d"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSQLiteStorage_GetExpensesFilter(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	otherCat, err := f.store.CreateCategory(ctx, "Rent", "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, e := range []*model.Expense{
		f.newExpense(t, "exp-jan", "10.00", jan),
		f.newExpense(t, "exp-feb", "20.00", feb),
		f.newExpense(t, "exp-mar", "30.00", mar),
	} {
		if err := f.store.InsertExpense(ctx, e); err != nil {
			t.Fatalf("InsertExpense failed: %v", err)
		}
	}
	rent := f.newExpense(t, "exp-rent", "900.00", feb)
	rent.CategoryID = otherCat.ID
	rent.SourceFundID = f.destID
	if err := f.store.InsertExpense(ctx, rent); err != nil {
		t.Fatalf("InsertExpense failed: %v", err)
	}

	t.Run("no filter returns all newest first", func(t *testing.T) {
		expenses, err := f.store.GetExpenses(ctx, service.ExpenseFilter{})
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 4 {
			t.Fatalf("expected 4 expenses, got %d", len(expenses))
		}
		if expenses[0].ID != "exp-mar" {
			t.Errorf("first expense = %s, want exp-mar", expenses[0].ID)
		}
	})

	t.Run("date range", func(t *testing.T) {
		start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
		expenses, err := f.store.GetExpenses(ctx, service.ExpenseFilter{StartDate: &start, EndDate: &end})
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Errorf("expected 2 expenses in February, got %d", len(expenses))
		}
	})

	t.Run("category filter", func(t *testing.T) {
		expenses, err := f.store.GetExpenses(ctx, service.ExpenseFilter{CategoryID: &otherCat.ID})
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 1 || expenses[0].ID != "exp-rent" {
			t.Errorf("expected only exp-rent, got %+v", expenses)
		}
	})

	t.Run("fund filter", func(t *testing.T) {
		expenses, err := f.store.GetExpenses(ctx, service.ExpenseFilter{FundID: &f.destID})
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 1 || expenses[0].ID != "exp-rent" {
			t.Errorf("expected only exp-rent, got %+v", expenses)
		}
	})

	t.Run("limit", func(t *testing.T) {
		expenses, err := f.store.GetExpenses(ctx, service.ExpenseFilter{Limit: 2})
		if err != nil {
			t.Fatalf("GetExpenses failed: %v", err)
		}
		if len(expenses) != 2 {
			t.Errorf("expected 2 expenses, got %d", len(expenses))
		}
	})

	t.Run("inverted date range rejected", func(t *testing.T) {
		if _, err := f.store.GetExpenses(ctx, service.ExpenseFilter{StartDate: &mar, EndDate: &jan}); err == nil {
			t.Error("expected error for inverted date range")
		}
	})
}

func TestSQLiteStorage_GetExpensesByFund(t *testing.T) {
	f := setupExpenseFixture(t)
	ctx := context.Background()

	spend := f.newExpense(t, "exp-spend", "10.00", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	transfer := f.newExpense(t, "exp-transfer", "50.00", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	transfer.DestinationFundID = &f.destID

	for _, e := range []*model.Expense{spend, transfer} {
		if err := f.store.InsertExpense(ctx, e); err != nil {
			t.Fatalf("InsertExpense failed: %v", err)
		}
	}

	// The destination fund sees the transfer even though it is not the source.
	expenses, err := f.store.GetExpensesByFund(ctx, f.destID)
	if err != nil {
		t.Fatalf("GetExpensesByFund failed: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "exp-transfer" {
		t.Errorf("expected only exp-transfer, got %+v", expenses)
	}

	// The source fund sees both, oldest first.
	expenses, err = f.store.GetExpensesByFund(ctx, f.fundID)
	if err != nil {
		t.Fatalf("GetExpensesByFund failed: %v", err)
	}
	if len(expenses) != 2 || expenses[0].ID != "exp-transfer" {
		t.Errorf("expected [exp-transfer exp-spend], got %+v", expenses)
	}

	count, err := f.store.CountExpensesByFund(ctx, f.fundID)
	if err != nil {
		t.Fatalf("CountExpensesByFund failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
