package engine

import (
	"context"
	"errors"
	"fmt"

	"fundflow/internal/model"
	"fundflow/internal/service"
)

// Resolver errors.
var (
	ErrSourceFundRequired = errors.New("source fund must be specified")
	ErrNoDerivableFund    = errors.New("category has no single associated fund to derive the source from")
	ErrSourceFundDerived  = errors.New("source fund is derived from the category and cannot be overridden")
)

// SourceFundResolver determines the fund an expense debits. Two schema
// variants exist in the wild: one carries the source fund on the expense
// record, the other derives it from the expense's category. The engine
// depends only on the resolved fund identity.
type SourceFundResolver interface {
	// ResolveCreate resolves the source fund for a new expense.
	ResolveCreate(ctx context.Context, store service.Storage, categoryID int64, explicit *int64) (int64, error)
	// ResolveUpdate resolves the source fund for the merged state of an
	// updated expense. A category change under a derived resolver changes
	// the source fund exactly as an explicit source change would.
	ResolveUpdate(ctx context.Context, store service.Storage, old *model.Expense, merged *model.Expense, explicit *int64) (int64, error)
}

// DirectResolver implements the variant where the source fund is carried on
// the expense record itself.
type DirectResolver struct{}

// ResolveCreate requires the caller to name the source fund.
func (DirectResolver) ResolveCreate(_ context.Context, _ service.Storage, _ int64, explicit *int64) (int64, error) {
	if explicit == nil {
		return 0, ErrSourceFundRequired
	}
	return *explicit, nil
}

// ResolveUpdate keeps the stored source fund unless the update supplies a
// new one. Category changes never move the source under this variant.
func (DirectResolver) ResolveUpdate(_ context.Context, _ service.Storage, old *model.Expense, _ *model.Expense, explicit *int64) (int64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	return old.SourceFundID, nil
}

// CategoryDerivedResolver implements the variant where the source fund is
// implicit: the single fund associated with the expense's category.
type CategoryDerivedResolver struct{}

// ResolveCreate derives the source fund from the category's association set.
// An explicit source fund is accepted only when it matches the derived one.
func (r CategoryDerivedResolver) ResolveCreate(ctx context.Context, store service.Storage, categoryID int64, explicit *int64) (int64, error) {
	derived, err := r.derive(ctx, store, categoryID)
	if err != nil {
		return 0, err
	}
	if explicit != nil && *explicit != derived {
		return 0, fmt.Errorf("%w: category %d derives fund %d", ErrSourceFundDerived, categoryID, derived)
	}
	return derived, nil
}

// ResolveUpdate re-derives from the merged category, so changing the
// category moves the source fund in the same operation.
func (r CategoryDerivedResolver) ResolveUpdate(ctx context.Context, store service.Storage, _ *model.Expense, merged *model.Expense, explicit *int64) (int64, error) {
	derived, err := r.derive(ctx, store, merged.CategoryID)
	if err != nil {
		return 0, err
	}
	if explicit != nil && *explicit != derived {
		return 0, fmt.Errorf("%w: category %d derives fund %d", ErrSourceFundDerived, merged.CategoryID, derived)
	}
	return derived, nil
}

func (CategoryDerivedResolver) derive(ctx context.Context, store service.Storage, categoryID int64) (int64, error) {
	funds, err := store.FundsForCategory(ctx, categoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve source fund: %w", err)
	}
	if len(funds) != 1 {
		return 0, fmt.Errorf("%w: category %d has %d funds", ErrNoDerivableFund, categoryID, len(funds))
	}
	return funds[0].ID, nil
}
