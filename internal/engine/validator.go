package engine

import (
	"context"
	"errors"
	"fmt"

	"fundflow/internal/common"
	"fundflow/internal/model"
	"fundflow/internal/service"
)

// ValidationResult is the outcome of admissibility checks for a proposed
// expense state. Errors reject the mutation; warnings accompany it.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the proposed state may be applied.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator decides whether a proposed expense state is admissible. It is a
// pure decision function over the given state and the category-fund
// association index; it never mutates anything.
type Validator struct{}

// Validate checks the merged state of an expense mutation. For updates, old
// is the stored record and merged is the stored record with the caller's
// fields applied; for creates, old is nil. The second return value reports
// lookup failures, not rejections.
func (v Validator) Validate(ctx context.Context, store service.Storage, old *model.Expense, merged *model.Expense) (ValidationResult, error) {
	var result ValidationResult

	// Rule 1: the amount must be strictly positive.
	if !merged.Amount.IsPositive() {
		result.addError("amount must be positive, got %s", merged.Amount)
		return result, nil
	}
	if !merged.Amount.Equal(merged.Amount.Round(2)) {
		result.addError("amount %s has more than two decimal places", merged.Amount)
		return result, nil
	}

	// Rule 2: when the category restricts its source funds, the source must
	// be one of them. An empty association set means unrestricted.
	associated, err := store.FundsForCategory(ctx, merged.CategoryID)
	if err != nil {
		return result, fmt.Errorf("failed to load category fund associations: %w", err)
	}
	if len(associated) > 0 && !containsFund(associated, merged.SourceFundID) {
		result.addError("source fund %d is not associated with category %d", merged.SourceFundID, merged.CategoryID)
	}

	sourceExists, err := store.FundExists(ctx, merged.SourceFundID)
	if err != nil {
		return result, fmt.Errorf("failed to check source fund: %w", err)
	}
	if !sourceExists {
		result.addError("source fund %d does not exist", merged.SourceFundID)
	}

	// Rule 3: a destination fund must exist and differ from the source.
	if merged.DestinationFundID != nil {
		destID := *merged.DestinationFundID
		if destID == merged.SourceFundID {
			result.addError("destination fund must differ from source fund %d", merged.SourceFundID)
		} else {
			destExists, err := store.FundExists(ctx, destID)
			if err != nil {
				return result, fmt.Errorf("failed to check destination fund: %w", err)
			}
			if !destExists {
				result.addError("destination fund %d does not exist", destID)
			}
		}
	}

	// Rule 4: when the category changes and the two categories draw from
	// differently named funds, tell the user, but never block.
	if old != nil && old.CategoryID != merged.CategoryID {
		oldName, err := categoryFundName(ctx, store, old.CategoryID, old.SourceFundID)
		if err != nil {
			return result, err
		}
		newName, err := categoryFundName(ctx, store, merged.CategoryID, merged.SourceFundID)
		if err != nil {
			return result, err
		}
		if oldName != "" && newName != "" && oldName != newName {
			result.addWarning("new category's fund %q differs from previous category's fund %q", newName, oldName)
		}
	}

	return result, nil
}

func containsFund(funds []model.Fund, id int64) bool {
	for _, f := range funds {
		if f.ID == id {
			return true
		}
	}
	return false
}

// categoryFundName is the name of the fund a category draws from: its single
// associated fund when it pins exactly one, otherwise the expense's own
// source fund. Unknown funds yield an empty name rather than an error so the
// warning stays silent instead of masking a rule 2/3 rejection.
func categoryFundName(ctx context.Context, store service.Storage, categoryID, sourceFundID int64) (string, error) {
	funds, err := store.FundsForCategory(ctx, categoryID)
	if err != nil {
		return "", fmt.Errorf("failed to load category fund associations: %w", err)
	}
	if len(funds) == 1 {
		return funds[0].Name, nil
	}
	fund, err := store.GetFund(ctx, sourceFundID)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load source fund: %w", err)
	}
	return fund.Name, nil
}
