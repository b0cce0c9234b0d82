package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"fundflow/internal/common"
	"fundflow/internal/model"
)

// CreateFund creates a new fund. The current balance starts equal to the
// initial balance.
func (s *SQLiteStorage) CreateFund(ctx context.Context, name, description string, initialBalance decimal.Decimal) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if err := validateMoney(initialBalance, "initialBalance"); err != nil {
		return nil, err
	}
	return s.createFundTx(ctx, s.db, name, description, initialBalance)
}

func (s *SQLiteStorage) createFundTx(ctx context.Context, q queryable, name, description string, initialBalance decimal.Decimal) (*model.Fund, error) {
	now := time.Now()
	cents := toCents(initialBalance)

	result, err := q.ExecContext(ctx, `
		INSERT INTO funds (name, description, initial_balance, current_balance, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, name, description, cents, cents, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("fund %q: %w", name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create fund: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get fund ID: %w", err)
	}

	slog.Info("created fund", "name", name, "id", id)

	return &model.Fund{
		ID:             id,
		Name:           name,
		Description:    description,
		InitialBalance: fromCents(cents),
		CurrentBalance: fromCents(cents),
		IsActive:       true,
		CreatedAt:      now,
	}, nil
}

// GetFund retrieves a fund by ID.
func (s *SQLiteStorage) GetFund(ctx context.Context, id int64) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getFundTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getFundTx(ctx context.Context, q queryable, id int64) (*model.Fund, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, initial_balance, current_balance, is_active, created_at
		FROM funds
		WHERE id = ?
	`, id)
	return scanFund(row)
}

// GetFundByName retrieves a fund by its unique name.
func (s *SQLiteStorage) GetFundByName(ctx context.Context, name string) (*model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getFundByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getFundByNameTx(ctx context.Context, q queryable, name string) (*model.Fund, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, initial_balance, current_balance, is_active, created_at
		FROM funds
		WHERE name = ?
	`, name)
	return scanFund(row)
}

func scanFund(row *sql.Row) (*model.Fund, error) {
	var fund model.Fund
	var description sql.NullString
	var initialCents, currentCents int64

	err := row.Scan(&fund.ID, &fund.Name, &description, &initialCents, &currentCents, &fund.IsActive, &fund.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fund: %w", err)
	}

	fund.Description = description.String
	fund.InitialBalance = fromCents(initialCents)
	fund.CurrentBalance = fromCents(currentCents)
	return &fund, nil
}

// GetFunds returns all active funds ordered by name.
func (s *SQLiteStorage) GetFunds(ctx context.Context) ([]model.Fund, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getFundsTx(ctx, s.db)
}

func (s *SQLiteStorage) getFundsTx(ctx context.Context, q queryable) ([]model.Fund, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, initial_balance, current_balance, is_active, created_at
		FROM funds
		WHERE is_active = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var funds []model.Fund
	for rows.Next() {
		var fund model.Fund
		var description sql.NullString
		var initialCents, currentCents int64

		if err := rows.Scan(&fund.ID, &fund.Name, &description, &initialCents, &currentCents, &fund.IsActive, &fund.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}

		fund.Description = description.String
		fund.InitialBalance = fromCents(initialCents)
		fund.CurrentBalance = fromCents(currentCents)
		funds = append(funds, fund)
	}

	return funds, rows.Err()
}

// FundExists reports whether an active fund with the given ID exists.
func (s *SQLiteStorage) FundExists(ctx context.Context, id int64) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	return s.fundExistsTx(ctx, s.db, id)
}

func (s *SQLiteStorage) fundExistsTx(ctx context.Context, q queryable, id int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM funds WHERE id = ? AND is_active = 1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check fund existence: %w", err)
	}
	return exists, nil
}

// AdjustBalance applies delta to the fund's current balance. The update is
// expressed relative to the stored value so concurrent adjustments to the
// same fund serialize inside SQLite rather than racing through the caller.
func (s *SQLiteStorage) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMoney(delta, "delta"); err != nil {
		return err
	}
	return s.adjustBalanceTx(ctx, s.db, id, delta)
}

func (s *SQLiteStorage) adjustBalanceTx(ctx context.Context, q queryable, id int64, delta decimal.Decimal) error {
	result, err := q.ExecContext(ctx, `
		UPDATE funds
		SET current_balance = current_balance + ?
		WHERE id = ?
	`, toCents(delta), id)
	if err != nil {
		return fmt.Errorf("failed to adjust fund balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fund %d: %w", id, common.ErrNotFound)
	}

	slog.Debug("adjusted fund balance", "fund_id", id, "delta", delta)
	return nil
}

// SetBalance overwrites the fund's current balance. Used only by the balance
// audit repair path; regular mutations go through AdjustBalance.
func (s *SQLiteStorage) SetBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMoney(balance, "balance"); err != nil {
		return err
	}
	return s.setBalanceTx(ctx, s.db, id, balance)
}

func (s *SQLiteStorage) setBalanceTx(ctx context.Context, q queryable, id int64, balance decimal.Decimal) error {
	result, err := q.ExecContext(ctx, `
		UPDATE funds
		SET current_balance = ?
		WHERE id = ?
	`, toCents(balance), id)
	if err != nil {
		return fmt.Errorf("failed to set fund balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fund %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// DeleteFund removes a fund. A fund referenced by any expense, as source or
// destination, cannot be deleted.
func (s *SQLiteStorage) DeleteFund(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteFundTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteFundTx(ctx context.Context, q queryable, id int64) error {
	count, err := s.countExpensesByFundTx(ctx, q, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("fund %d has %d expenses: %w", id, count, common.ErrFundReferenced)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM category_funds WHERE fund_id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove fund associations: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM funds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fund: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fund %d: %w", id, common.ErrNotFound)
	}

	slog.Info("deleted fund", "id", id)
	return nil
}
