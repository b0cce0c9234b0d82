package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"fundflow/internal/cli"
	"fundflow/internal/common"
	"fundflow/internal/config"
	"fundflow/internal/engine"
	"fundflow/internal/model"
	"fundflow/internal/service"
	"fundflow/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	// Run migrations. Another fundflow process may hold the write lock, so
	// retry briefly before giving up.
	err = common.WithRetry(ctx, func() error {
		return store.Migrate(ctx)
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine builds a balance engine over the store. The source_resolution
// setting selects the schema variant: "direct" carries the source fund on
// each expense, "category" derives it from the expense's category.
func newEngine(store service.Storage) (*engine.Engine, error) {
	mode := viper.GetString("engine.source_resolution")
	switch mode {
	case "", "direct":
		return engine.New(store, engine.DirectResolver{}), nil
	case "category":
		return engine.New(store, engine.CategoryDerivedResolver{}), nil
	default:
		return nil, fmt.Errorf("%w: engine.source_resolution %q (want direct or category)", common.ErrInvalidConfig, mode)
	}
}

// parseAmount parses a user-supplied monetary amount, accepting both comma
// and dot decimal separators.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// formatMoney renders a balance, highlighting overdrawn funds.
func formatMoney(d decimal.Decimal) string {
	rendered := d.StringFixed(2)
	if d.IsNegative() {
		return cli.NegativeStyle.Render(rendered)
	}
	return rendered
}

// renderEngineError turns engine failures into user-facing messages:
// validation errors list every violated constraint, warnings included.
func renderEngineError(err error) error {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		var b strings.Builder
		b.WriteString(cli.FormatError("expense rejected"))
		for _, msg := range validationErr.Errors {
			b.WriteString("\n  " + cli.ErrorStyle.Render("- "+msg))
		}
		for _, msg := range validationErr.Warnings {
			b.WriteString("\n  " + cli.WarningStyle.Render("- "+msg))
		}
		return errors.New(b.String())
	}
	return err
}

// lookupCategory resolves a category argument that may be an ID or a name.
func lookupCategory(ctx context.Context, store service.Storage, arg string) (*model.Category, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.GetCategoryByID(ctx, id)
	}
	return store.GetCategoryByName(ctx, arg)
}

// lookupFund resolves a fund argument that may be an ID or a name.
func lookupFund(ctx context.Context, store service.Storage, arg string) (*model.Fund, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.GetFund(ctx, id)
	}
	return store.GetFundByName(ctx, arg)
}
