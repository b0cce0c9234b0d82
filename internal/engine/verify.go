package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fundflow/internal/model"
	"fundflow/internal/service"
)

// ProgressFunc reports audit progress: funds checked so far out of the total.
type ProgressFunc func(done, total int)

// VerifyBalances recomputes every fund's balance from the expense set and
// compares it with the cached value. The whole audit runs inside one
// transaction so it sees a consistent snapshot. Funds whose Drift is nonzero
// violate the balance invariant.
func (e *Engine) VerifyBalances(ctx context.Context, progress ProgressFunc) ([]service.FundBalanceSummary, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	summaries, err := e.auditTx(ctx, tx, progress)
	if err != nil {
		return nil, err
	}

	// Read-only; nothing to commit.
	return summaries, nil
}

// RepairBalances recomputes every fund's balance and overwrites drifted
// caches with the recomputed value. It returns the summaries of the funds it
// repaired.
func (e *Engine) RepairBalances(ctx context.Context, progress ProgressFunc) ([]service.FundBalanceSummary, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	summaries, err := e.auditTx(ctx, tx, progress)
	if err != nil {
		return nil, err
	}

	var repaired []service.FundBalanceSummary
	for _, summary := range summaries {
		if summary.Drift().IsZero() {
			continue
		}
		if err := tx.SetBalance(ctx, summary.FundID, summary.ComputedBalance); err != nil {
			return nil, err
		}
		repaired = append(repaired, summary)
		slog.Warn("repaired drifted fund balance",
			"fund", summary.FundName,
			"recorded", summary.RecordedBalance,
			"computed", summary.ComputedBalance)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit balance repair: %w", err)
	}

	return repaired, nil
}

func (e *Engine) auditTx(ctx context.Context, tx service.Transaction, progress ProgressFunc) ([]service.FundBalanceSummary, error) {
	funds, err := tx.GetFunds(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]service.FundBalanceSummary, 0, len(funds))
	for i, fund := range funds {
		expenses, err := tx.GetExpensesByFund(ctx, fund.ID)
		if err != nil {
			return nil, err
		}

		computed := fund.InitialBalance
		for _, expense := range expenses {
			computed = computed.Add(signedDelta(&expense, fund.ID))
		}

		summaries = append(summaries, service.FundBalanceSummary{
			FundID:          fund.ID,
			FundName:        fund.Name,
			RecordedBalance: fund.CurrentBalance,
			ComputedBalance: computed,
			ExpenseCount:    len(expenses),
		})

		if progress != nil {
			progress(i+1, len(funds))
		}
	}

	return summaries, nil
}

// signedDelta returns the expense's contribution to the fund's balance:
// negative when the fund is the source, positive when it is the destination.
func signedDelta(expense *model.Expense, fundID int64) decimal.Decimal {
	delta := decimal.Zero
	if expense.SourceFundID == fundID {
		delta = delta.Sub(expense.Amount)
	}
	if expense.DestinationFundID != nil && *expense.DestinationFundID == fundID {
		delta = delta.Add(expense.Amount)
	}
	return delta
}
