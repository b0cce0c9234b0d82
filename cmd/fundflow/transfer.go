package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fundflow/internal/cli"
	"fundflow/internal/engine"
)

func transferCmd() *cobra.Command {
	var (
		fromArg     string
		toArg       string
		categoryArg string
		dateArg     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "transfer <amount>",
		Short: "Move money between funds",
		Long: `Record a transfer: an expense that debits the source fund and credits
the destination fund by the same amount, so the total across funds is
unchanged.

Example:
  fundflow transfer 250 --from Checking --to "Emergency Fund" -c Savings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}

			source, err := lookupFund(ctx, store, fromArg)
			if err != nil {
				return fmt.Errorf("source fund %q: %w", fromArg, err)
			}
			dest, err := lookupFund(ctx, store, toArg)
			if err != nil {
				return fmt.Errorf("destination fund %q: %w", toArg, err)
			}
			cat, err := lookupCategory(ctx, store, categoryArg)
			if err != nil {
				return fmt.Errorf("category %q: %w", categoryArg, err)
			}

			if description == "" {
				description = fmt.Sprintf("Transfer from %s to %s", source.Name, dest.Name)
			}

			input := engine.CreateExpenseInput{
				CategoryID:        cat.ID,
				SourceFundID:      &source.ID,
				DestinationFundID: &dest.ID,
				Amount:            amount,
				Description:       description,
			}

			if dateArg != "" {
				date, err := time.Parse("2006-01-02", dateArg)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateArg)
				}
				input.Date = date
			}

			expense, err := eng.CreateExpense(ctx, input)
			if err != nil {
				return renderEngineError(err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transferred %s from %q to %q (expense %s)",
				expense.Amount.StringFixed(2), source.Name, dest.Name, shortID(expense.ID))))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromArg, "from", "", "source fund ID or name (required)")
	cmd.Flags().StringVar(&toArg, "to", "", "destination fund ID or name (required)")
	cmd.Flags().StringVarP(&categoryArg, "category", "c", "", "category ID or name (required)")
	cmd.Flags().StringVar(&dateArg, "date", "", "transfer date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&description, "description", "D", "", "description (default generated)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
