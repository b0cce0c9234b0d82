package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundflow/internal/model"
	"fundflow/internal/service"
)

// Engine applies expense mutations and the compensating balance deltas they
// imply. It holds no state of its own; every operation runs inside a single
// storage transaction so that the record write and all balance deltas commit
// or roll back together.
type Engine struct {
	store     service.Storage
	resolver  SourceFundResolver
	validator Validator
}

// New creates a balance engine over the given storage. The resolver selects
// the schema variant for determining an expense's source fund.
func New(store service.Storage, resolver SourceFundResolver) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
	}
}

// CreateExpenseInput carries the caller-supplied fields for a new expense.
// SourceFundID may be nil under a category-derived resolver.
type CreateExpenseInput struct {
	Date              time.Time
	Description       string
	PaymentMethod     string
	Amount            decimal.Decimal
	CategoryID        int64
	SourceFundID      *int64
	DestinationFundID *int64
}

// CreateExpense validates and persists a new expense, debiting the source
// fund and, for transfers, crediting the destination fund.
func (e *Engine) CreateExpense(ctx context.Context, input CreateExpenseInput) (*model.Expense, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.GetCategoryByID(ctx, input.CategoryID); err != nil {
		return nil, fmt.Errorf("category %d: %w", input.CategoryID, err)
	}

	sourceID, err := e.resolver.ResolveCreate(ctx, tx, input.CategoryID, input.SourceFundID)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	expense := &model.Expense{
		ID:                uuid.NewString(),
		CategoryID:        input.CategoryID,
		SourceFundID:      sourceID,
		DestinationFundID: input.DestinationFundID,
		Amount:            input.Amount,
		Date:              date,
		Description:       input.Description,
		PaymentMethod:     input.PaymentMethod,
	}

	result, err := e.validator.Validate(ctx, tx, nil, expense)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, &ValidationError{Errors: result.Errors, Warnings: result.Warnings}
	}

	if err := tx.InsertExpense(ctx, expense); err != nil {
		return nil, err
	}

	if err := e.apply(ctx, tx, expense); err != nil {
		return nil, &ConsistencyError{Op: "create", ExpenseID: expense.ID, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense creation: %w", err)
	}

	slog.Info("created expense",
		"id", expense.ID,
		"amount", expense.Amount,
		"source_fund", expense.SourceFundID,
		"transfer", expense.IsTransfer())
	return expense, nil
}

// UpdateExpense applies a partial update to an expense. The stored record is
// read in full, the supplied fields are merged over it, the merged state is
// validated, and the balance effect is replaced with a strict
// revert-then-reapply: the old record's deltas are undone against the old
// funds, then the new record's deltas are applied against the new funds.
// Returned warnings are advisory and never block the operation.
func (e *Engine) UpdateExpense(ctx context.Context, id string, update model.ExpenseUpdate) (*model.Expense, []string, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	old, err := tx.GetExpense(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	merged := update.ApplyTo(*old)

	if update.CategoryID != nil && merged.CategoryID != old.CategoryID {
		if _, err := tx.GetCategoryByID(ctx, merged.CategoryID); err != nil {
			return nil, nil, fmt.Errorf("category %d: %w", merged.CategoryID, err)
		}
	}

	sourceID, err := e.resolver.ResolveUpdate(ctx, tx, old, &merged, update.SourceFundID)
	if err != nil {
		return nil, nil, err
	}
	merged.SourceFundID = sourceID

	result, err := e.validator.Validate(ctx, tx, old, &merged)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid() {
		return nil, nil, &ValidationError{Errors: result.Errors, Warnings: result.Warnings}
	}

	// Revert the old record's effect, write the new record, reapply. The two
	// passes are keyed by fund identity, so source and destination may both
	// change between old and merged without any special casing; when nothing
	// changed the passes net to zero, which is correct.
	if err := e.revert(ctx, tx, old); err != nil {
		return nil, nil, &ConsistencyError{Op: "update", ExpenseID: id, Err: err}
	}

	if err := tx.UpdateExpense(ctx, &merged); err != nil {
		return nil, nil, err
	}

	if err := e.apply(ctx, tx, &merged); err != nil {
		return nil, nil, &ConsistencyError{Op: "update", ExpenseID: id, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit expense update: %w", err)
	}

	slog.Info("updated expense",
		"id", id,
		"amount", merged.Amount,
		"source_fund", merged.SourceFundID,
		"warnings", len(result.Warnings))
	return &merged, result.Warnings, nil
}

// DeleteExpense removes an expense and compensates the balances it touched:
// the source fund is credited back and, for transfers, the destination fund
// is debited. The removed record is returned.
func (e *Engine) DeleteExpense(ctx context.Context, id string) (*model.Expense, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	old, err := tx.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.DeleteExpense(ctx, id); err != nil {
		return nil, err
	}

	if err := e.revert(ctx, tx, old); err != nil {
		return nil, &ConsistencyError{Op: "delete", ExpenseID: id, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense deletion: %w", err)
	}

	slog.Info("deleted expense", "id", id, "amount", old.Amount)
	return old, nil
}

// apply debits the source fund and credits the destination fund, if any.
func (e *Engine) apply(ctx context.Context, tx service.Transaction, expense *model.Expense) error {
	if err := tx.AdjustBalance(ctx, expense.SourceFundID, expense.Amount.Neg()); err != nil {
		return err
	}
	if expense.DestinationFundID != nil {
		if err := tx.AdjustBalance(ctx, *expense.DestinationFundID, expense.Amount); err != nil {
			return err
		}
	}
	return nil
}

// revert is the exact inverse of apply, computed from the record's stored
// values.
func (e *Engine) revert(ctx context.Context, tx service.Transaction, expense *model.Expense) error {
	if err := tx.AdjustBalance(ctx, expense.SourceFundID, expense.Amount); err != nil {
		return err
	}
	if expense.DestinationFundID != nil {
		if err := tx.AdjustBalance(ctx, *expense.DestinationFundID, expense.Amount.Neg()); err != nil {
			return err
		}
	}
	return nil
}

// GetExpense returns a stored expense.
func (e *Engine) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	return e.store.GetExpense(ctx, id)
}
