package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fundflow/internal/common"
	"fundflow/internal/model"
	"fundflow/internal/service"
)

// InsertExpense persists a new expense record. It writes the record only;
// balance deltas are the engine's responsibility.
func (s *SQLiteStorage) InsertExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return s.insertExpenseTx(ctx, s.db, expense)
}

func (s *SQLiteStorage) insertExpenseTx(ctx context.Context, q queryable, expense *model.Expense) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO expenses (
			id, category_id, source_fund_id, destination_fund_id,
			amount, date, description, payment_method, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		expense.ID,
		expense.CategoryID,
		expense.SourceFundID,
		expense.DestinationFundID,
		toCents(expense.Amount),
		expense.Date,
		expense.Description,
		expense.PaymentMethod,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	slog.Debug("inserted expense", "id", expense.ID, "amount", expense.Amount)
	return nil
}

// GetExpense retrieves an expense by ID.
func (s *SQLiteStorage) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getExpenseTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getExpenseTx(ctx context.Context, q queryable, id string) (*model.Expense, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, category_id, source_fund_id, destination_fund_id,
		       amount, date, description, payment_method, created_at
		FROM expenses
		WHERE id = ?
	`, id)

	expense, err := scanExpenseRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// UpdateExpense overwrites the stored record with the given one, matched by
// ID. Balance deltas are the engine's responsibility.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	return s.updateExpenseTx(ctx, s.db, expense)
}

func (s *SQLiteStorage) updateExpenseTx(ctx context.Context, q queryable, expense *model.Expense) error {
	result, err := q.ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?,
		    source_fund_id = ?,
		    destination_fund_id = ?,
		    amount = ?,
		    date = ?,
		    description = ?,
		    payment_method = ?
		WHERE id = ?
	`,
		expense.CategoryID,
		expense.SourceFundID,
		expense.DestinationFundID,
		toCents(expense.Amount),
		expense.Date,
		expense.Description,
		expense.PaymentMethod,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, common.ErrNotFound)
	}

	slog.Debug("updated expense", "id", expense.ID)
	return nil
}

// DeleteExpense removes an expense record. It removes the record only;
// compensating balance deltas are the engine's responsibility.
func (s *SQLiteStorage) DeleteExpense(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.deleteExpenseTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteExpenseTx(ctx context.Context, q queryable, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}

	slog.Debug("deleted expense", "id", id)
	return nil
}

// GetExpenses returns expenses matching the filter, newest first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateExpenseFilter(filter); err != nil {
		return nil, err
	}
	return s.getExpensesTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getExpensesTx(ctx context.Context, q queryable, filter service.ExpenseFilter) ([]model.Expense, error) {
	var conditions []string
	var args []any

	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.FundID != nil {
		conditions = append(conditions, "(source_fund_id = ? OR destination_fund_id = ?)")
		args = append(args, *filter.FundID, *filter.FundID)
	}

	query := `
		SELECT id, category_id, source_fund_id, destination_fund_id,
		       amount, date, description, payment_method, created_at
		FROM expenses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// GetExpensesByFund returns every expense that references the fund as source
// or destination, oldest first.
func (s *SQLiteStorage) GetExpensesByFund(ctx context.Context, fundID int64) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getExpensesByFundTx(ctx, s.db, fundID)
}

func (s *SQLiteStorage) getExpensesByFundTx(ctx context.Context, q queryable, fundID int64) ([]model.Expense, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, category_id, source_fund_id, destination_fund_id,
		       amount, date, description, payment_method, created_at
		FROM expenses
		WHERE source_fund_id = ? OR destination_fund_id = ?
		ORDER BY date, created_at
	`, fundID, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by fund: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// CountExpensesByFund counts expenses referencing the fund as source or
// destination.
func (s *SQLiteStorage) CountExpensesByFund(ctx context.Context, fundID int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countExpensesByFundTx(ctx, s.db, fundID)
}

func (s *SQLiteStorage) countExpensesByFundTx(ctx context.Context, q queryable, fundID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM expenses
		WHERE source_fund_id = ? OR destination_fund_id = ?
	`, fundID, fundID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses by fund: %w", err)
	}
	return count, nil
}

func scanExpenseRow(row *sql.Row) (*model.Expense, error) {
	var expense model.Expense
	var destination sql.NullInt64
	var description, paymentMethod sql.NullString
	var amountCents int64

	err := row.Scan(
		&expense.ID,
		&expense.CategoryID,
		&expense.SourceFundID,
		&destination,
		&amountCents,
		&expense.Date,
		&description,
		&paymentMethod,
		&expense.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if destination.Valid {
		expense.DestinationFundID = &destination.Int64
	}
	expense.Description = description.String
	expense.PaymentMethod = paymentMethod.String
	expense.Amount = fromCents(amountCents)
	return &expense, nil
}

func scanExpenses(rows *sql.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		var expense model.Expense
		var destination sql.NullInt64
		var description, paymentMethod sql.NullString
		var amountCents int64

		err := rows.Scan(
			&expense.ID,
			&expense.CategoryID,
			&expense.SourceFundID,
			&destination,
			&amountCents,
			&expense.Date,
			&description,
			&paymentMethod,
			&expense.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if destination.Valid {
			dest := destination.Int64
			expense.DestinationFundID = &dest
		}
		expense.Description = description.String
		expense.PaymentMethod = paymentMethod.String
		expense.Amount = fromCents(amountCents)
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}
