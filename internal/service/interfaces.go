// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fundflow/internal/model"
)

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID *int64
	FundID     *int64
	Limit      int
	Offset     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Fund operations
	CreateFund(ctx context.Context, name, description string, initialBalance decimal.Decimal) (*model.Fund, error)
	GetFund(ctx context.Context, id int64) (*model.Fund, error)
	GetFundByName(ctx context.Context, name string) (*model.Fund, error)
	GetFunds(ctx context.Context) ([]model.Fund, error)
	FundExists(ctx context.Context, id int64) (bool, error)
	// AdjustBalance applies delta to the fund's current balance as a single
	// relative update; it never round-trips the balance through the caller.
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error
	SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	DeleteFund(ctx context.Context, id int64) error

	// Category operations
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)

	// Category-fund association index. An empty result means the category is
	// unrestricted: any fund is admissible as a source.
	AssociateFund(ctx context.Context, categoryID, fundID int64) error
	DissociateFund(ctx context.Context, categoryID, fundID int64) error
	FundsForCategory(ctx context.Context, categoryID int64) ([]model.Fund, error)

	// Expense operations
	InsertExpense(ctx context.Context, expense *model.Expense) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	UpdateExpense(ctx context.Context, expense *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	GetExpensesByFund(ctx context.Context, fundID int64) ([]model.Expense, error)
	CountExpensesByFund(ctx context.Context, fundID int64) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. All Storage methods invoked
// through it share one unit of work; either every write commits or none does.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// FundBalanceSummary reports a fund's audited balance position.
type FundBalanceSummary struct {
	FundName        string
	FundID          int64
	RecordedBalance decimal.Decimal
	ComputedBalance decimal.Decimal
	ExpenseCount    int
}

// Drift returns the difference between the cached and recomputed balance.
// Zero means the fund invariant holds.
func (s FundBalanceSummary) Drift() decimal.Decimal {
	return s.RecordedBalance.Sub(s.ComputedBalance)
}
