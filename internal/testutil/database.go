// Package testutil provides test helpers for setting up isolated fundflow
// databases with seeded funds and categories.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fundflow/internal/model"
	"fundflow/internal/service"
	"fundflow/internal/storage"
)

// TestDB wraps an in-memory migrated database for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory database with migrations applied and
// cleanup registered.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateFund creates a fund with the given starting balance or fails the
// test. The balance string must parse as a decimal.
func (db *TestDB) MustCreateFund(name, balance string) *model.Fund {
	db.t.Helper()

	initial, err := decimal.NewFromString(balance)
	if err != nil {
		db.t.Fatalf("invalid balance %q: %v", balance, err)
	}

	fund, err := db.Storage.CreateFund(context.Background(), name, "", initial)
	if err != nil {
		db.t.Fatalf("failed to create fund %q: %v", name, err)
	}
	return fund
}

// MustCreateCategory creates a category or fails the test.
func (db *TestDB) MustCreateCategory(name string) *model.Category {
	db.t.Helper()

	cat, err := db.Storage.CreateCategory(context.Background(), name, "")
	if err != nil {
		db.t.Fatalf("failed to create category %q: %v", name, err)
	}
	return cat
}

// MustAssociate adds a fund to a category's admissible source set or fails
// the test.
func (db *TestDB) MustAssociate(categoryID, fundID int64) {
	db.t.Helper()

	if err := db.Storage.AssociateFund(context.Background(), categoryID, fundID); err != nil {
		db.t.Fatalf("failed to associate fund %d with category %d: %v", fundID, categoryID, err)
	}
}

// MustBalance returns a fund's current balance or fails the test.
func (db *TestDB) MustBalance(fundID int64) decimal.Decimal {
	db.t.Helper()

	fund, err := db.Storage.GetFund(context.Background(), fundID)
	if err != nil {
		db.t.Fatalf("failed to get fund %d: %v", fundID, err)
	}
	return fund.CurrentBalance
}
