// Package storage provides the data persistence layer for the fundflow application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fundflow/internal/model"
	"fundflow/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidMoney     = errors.New("monetary value must have at most two decimal places")
	ErrInvalidExpense   = errors.New("invalid expense")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateMoney ensures a monetary value survives the round trip through the
// integer-cents column. The comparison is by value, so trailing-zero
// representations like 10.500 pass.
func validateMoney(d decimal.Decimal, paramName string) error {
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("%w: %s", ErrInvalidMoney, paramName)
	}
	return nil
}

// validateExpense validates a single expense record.
func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if expense.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if expense.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	if expense.CategoryID == 0 {
		return fmt.Errorf("%w: missing category ID", ErrInvalidExpense)
	}
	if expense.SourceFundID == 0 {
		return fmt.Errorf("%w: missing source fund ID", ErrInvalidExpense)
	}
	if !expense.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if err := validateMoney(expense.Amount, "amount"); err != nil {
		return err
	}
	if expense.DestinationFundID != nil && *expense.DestinationFundID == expense.SourceFundID {
		return fmt.Errorf("%w: destination fund equals source fund", ErrInvalidExpense)
	}
	return nil
}

// validateExpenseFilter validates expense query filter options.
func validateExpenseFilter(filter service.ExpenseFilter) error {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return fmt.Errorf("%w: %v to %v", ErrInvalidDateRange, filter.StartDate, filter.EndDate)
	}
	if filter.Limit < 0 {
		return fmt.Errorf("limit cannot be negative: %d", filter.Limit)
	}
	if filter.Offset < 0 {
		return fmt.Errorf("offset cannot be negative: %d", filter.Offset)
	}
	return nil
}
