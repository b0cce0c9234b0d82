package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fundflow/internal/model"
	"fundflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Fund methods delegate to the main storage with the transaction.

func (t *sqliteTransaction) CreateFund(ctx context.Context, name, description string, initialBalance decimal.Decimal) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createFundTx(ctx, t.tx, name, description, initialBalance)
}

func (t *sqliteTransaction) GetFund(ctx context.Context, id int64) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getFundTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetFundByName(ctx context.Context, name string) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getFundByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetFunds(ctx context.Context) ([]model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getFundsTx(ctx, t.tx)
}

func (t *sqliteTransaction) FundExists(ctx context.Context, id int64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return t.storage.fundExistsTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMoney(delta, "delta"); err != nil {
		return err
	}
	return t.storage.adjustBalanceTx(ctx, t.tx, id, delta)
}

func (t *sqliteTransaction) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMoney(balance, "balance"); err != nil {
		return err
	}
	return t.storage.setBalanceTx(ctx, t.tx, id, balance)
}

func (t *sqliteTransaction) DeleteFund(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteFundTx(ctx, t.tx, id)
}

// Category methods.

func (t *sqliteTransaction) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.createCategoryTx(ctx, t.tx, name, description)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return t.storage.getCategoryByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) AssociateFund(ctx context.Context, categoryID, fundID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.associateFundTx(ctx, t.tx, categoryID, fundID)
}

func (t *sqliteTransaction) DissociateFund(ctx context.Context, categoryID, fundID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.dissociateFundTx(ctx, t.tx, categoryID, fundID)
}

func (t *sqliteTransaction) FundsForCategory(ctx context.Context, categoryID int64) ([]model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.fundsForCategoryTx(ctx, t.tx, categoryID)
}

// Expense methods.

func (t *sqliteTransaction) InsertExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return t.storage.insertExpenseTx(ctx, t.tx, expense)
}

func (t *sqliteTransaction) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return t.storage.getExpenseTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return t.storage.updateExpenseTx(ctx, t.tx, expense)
}

func (t *sqliteTransaction) DeleteExpense(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.deleteExpenseTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateExpenseFilter(filter); err != nil {
		return nil, err
	}
	return t.storage.getExpensesTx(ctx, t.tx, filter)
}

func (t *sqliteTransaction) GetExpensesByFund(ctx context.Context, fundID int64) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getExpensesByFundTx(ctx, t.tx, fundID)
}

func (t *sqliteTransaction) CountExpensesByFund(ctx context.Context, fundID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.countExpensesByFundTx(ctx, t.tx, fundID)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
