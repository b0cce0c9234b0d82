package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fundflow/internal/common"
	"fundflow/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestSQLiteStorage_CreateFund(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fund, err := store.CreateFund(ctx, "Groceries", "monthly food budget", mustDecimal(t, "250.00"))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	if fund.ID == 0 {
		t.Error("expected nonzero fund ID")
	}
	if !fund.CurrentBalance.Equal(fund.InitialBalance) {
		t.Errorf("current balance %s != initial balance %s", fund.CurrentBalance, fund.InitialBalance)
	}

	got, err := store.GetFund(ctx, fund.ID)
	if err != nil {
		t.Fatalf("GetFund failed: %v", err)
	}
	if !got.CurrentBalance.Equal(mustDecimal(t, "250.00")) {
		t.Errorf("balance = %s, want 250.00", got.CurrentBalance)
	}

	byName, err := store.GetFundByName(ctx, "Groceries")
	if err != nil {
		t.Fatalf("GetFundByName failed: %v", err)
	}
	if byName.ID != fund.ID {
		t.Errorf("GetFundByName ID = %d, want %d", byName.ID, fund.ID)
	}
}

func TestSQLiteStorage_CreateFundValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fundName string
		balance  string
	}{
		{name: "empty name", fundName: "", balance: "10.00"},
		{name: "sub-cent balance", fundName: "Precise", balance: "10.001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateFund(ctx, tt.fundName, "", mustDecimal(t, tt.balance))
			if err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSQLiteStorage_CreateFundDuplicateName(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	if _, err := store.CreateFund(ctx, "Checking", "", decimal.Zero); err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	_, err := store.CreateFund(ctx, "Checking", "", decimal.Zero)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
}

func TestSQLiteStorage_GetFundNotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetFund(context.Background(), 9999)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_AdjustBalance(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fund, err := store.CreateFund(ctx, "Checking", "", mustDecimal(t, "100.00"))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	tests := []struct {
		name  string
		delta string
		want  string
	}{
		{name: "debit", delta: "-25.50", want: "74.50"},
		{name: "credit", delta: "10.00", want: "84.50"},
		{name: "overdraw allowed", delta: "-200.00", want: "-115.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.AdjustBalance(ctx, fund.ID, mustDecimal(t, tt.delta)); err != nil {
				t.Fatalf("AdjustBalance failed: %v", err)
			}

			got, err := store.GetFund(ctx, fund.ID)
			if err != nil {
				t.Fatalf("GetFund failed: %v", err)
			}
			if !got.CurrentBalance.Equal(mustDecimal(t, tt.want)) {
				t.Errorf("balance = %s, want %s", got.CurrentBalance, tt.want)
			}
		})
	}

	// Initial balance never moves.
	got, err := store.GetFund(ctx, fund.ID)
	if err != nil {
		t.Fatalf("GetFund failed: %v", err)
	}
	if !got.InitialBalance.Equal(mustDecimal(t, "100.00")) {
		t.Errorf("initial balance = %s, want 100.00", got.InitialBalance)
	}
}

func TestSQLiteStorage_AdjustBalanceMissingFund(t *testing.T) {
	store := createTestStorage(t)

	err := store.AdjustBalance(context.Background(), 42, mustDecimal(t, "1.00"))
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_SetBalance(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fund, err := store.CreateFund(ctx, "Drifted", "", mustDecimal(t, "50.00"))
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	if err := store.SetBalance(ctx, fund.ID, mustDecimal(t, "123.45")); err != nil {
		t.Fatalf("SetBalance failed: %v", err)
	}

	got, err := store.GetFund(ctx, fund.ID)
	if err != nil {
		t.Fatalf("GetFund failed: %v", err)
	}
	if !got.CurrentBalance.Equal(mustDecimal(t, "123.45")) {
		t.Errorf("balance = %s, want 123.45", got.CurrentBalance)
	}
}

func TestSQLiteStorage_DeleteFund(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	t.Run("unreferenced fund is deleted", func(t *testing.T) {
		fund, err := store.CreateFund(ctx, "Ephemeral", "", decimal.Zero)
		if err != nil {
			t.Fatalf("CreateFund failed: %v", err)
		}

		if err := store.DeleteFund(ctx, fund.ID); err != nil {
			t.Fatalf("DeleteFund failed: %v", err)
		}

		if _, err := store.GetFund(ctx, fund.ID); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("referenced fund is refused", func(t *testing.T) {
		fund, err := store.CreateFund(ctx, "Referenced", "", mustDecimal(t, "100.00"))
		if err != nil {
			t.Fatalf("CreateFund failed: %v", err)
		}
		cat, err := store.CreateCategory(ctx, "Misc", "")
		if err != nil {
			t.Fatalf("CreateCategory failed: %v", err)
		}

		expense := &model.Expense{
			ID:           "exp-ref-1",
			CategoryID:   cat.ID,
			SourceFundID: fund.ID,
			Amount:       mustDecimal(t, "10.00"),
			Date:         time.Now(),
		}
		if err := store.InsertExpense(ctx, expense); err != nil {
			t.Fatalf("InsertExpense failed: %v", err)
		}

		err = store.DeleteFund(ctx, fund.ID)
		if !errors.Is(err, common.ErrFundReferenced) {
			t.Errorf("expected ErrFundReferenced, got %v", err)
		}
	})
}

func TestSQLiteStorage_FundExists(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	fund, err := store.CreateFund(ctx, "Real", "", decimal.Zero)
	if err != nil {
		t.Fatalf("CreateFund failed: %v", err)
	}

	exists, err := store.FundExists(ctx, fund.ID)
	if err != nil {
		t.Fatalf("FundExists failed: %v", err)
	}
	if !exists {
		t.Error("expected fund to exist")
	}

	exists, err = store.FundExists(ctx, 9999)
	if err != nil {
		t.Fatalf("FundExists failed: %v", err)
	}
	if exists {
		t.Error("expected fund 9999 to not exist")
	}
}
