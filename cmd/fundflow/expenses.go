package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fundflow/internal/cli"
	"fundflow/internal/engine"
	"fundflow/internal/model"
	"fundflow/internal/service"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Manage expenses",
		Long: `Add, edit, delete, and list expenses. Every mutation applies its
compensating balance deltas to the funds it touches in one transaction.`,
	}

	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(editExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())
	cmd.AddCommand(listExpensesCmd())

	return cmd
}

func addExpenseCmd() *cobra.Command {
	var (
		amountArg     string
		categoryArg   string
		sourceArg     string
		destArg       string
		dateArg       string
		description   string
		paymentMethod string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Long: `Record an expense against a category. The source fund is debited by the
amount; naming a destination fund turns the expense into a transfer that
credits the destination by the same amount.

Examples:
  fundflow expenses add -a 42.50 -c Groceries -f Household -m card -D "weekly shop"
  fundflow expenses add -a 300 -c Savings -f Checking -t "Emergency Fund"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}

			amount, err := parseAmount(amountArg)
			if err != nil {
				return err
			}

			cat, err := lookupCategory(ctx, store, categoryArg)
			if err != nil {
				return fmt.Errorf("category %q: %w", categoryArg, err)
			}

			input := engine.CreateExpenseInput{
				CategoryID:    cat.ID,
				Amount:        amount,
				Description:   description,
				PaymentMethod: paymentMethod,
			}

			if sourceArg != "" {
				fund, err := lookupFund(ctx, store, sourceArg)
				if err != nil {
					return fmt.Errorf("source fund %q: %w", sourceArg, err)
				}
				input.SourceFundID = &fund.ID
			}

			if destArg != "" {
				fund, err := lookupFund(ctx, store, destArg)
				if err != nil {
					return fmt.Errorf("destination fund %q: %w", destArg, err)
				}
				input.DestinationFundID = &fund.ID
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

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded expense %s (%s)",
				expense.ID, expense.Amount.StringFixed(2))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&amountArg, "amount", "a", "", "expense amount (required)")
	cmd.Flags().StringVarP(&categoryArg, "category", "c", "", "category ID or name (required)")
	cmd.Flags().StringVarP(&sourceArg, "fund", "f", "", "source fund ID or name")
	cmd.Flags().StringVarP(&destArg, "to", "t", "", "destination fund for transfers")
	cmd.Flags().StringVarP(&dateArg, "date", "", "", "expense date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&description, "description", "D", "", "free-form description")
	cmd.Flags().StringVarP(&paymentMethod, "method", "m", "", "payment method")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func editExpenseCmd() *cobra.Command {
	var (
		amountArg   string
		categoryArg string
		sourceArg   string
		destArg     string
		clearDest   bool
		dateArg     string
		description string
		method      string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an expense",
		Long: `Apply a partial update to an expense. Only the supplied flags change; the
engine reverts the old record's balance effect and reapplies the new one,
so fund balances stay consistent whichever fields move.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}

			var update model.ExpenseUpdate

			if cmd.Flags().Changed("amount") {
				amount, err := parseAmount(amountArg)
				if err != nil {
					return err
				}
				update.Amount = &amount
			}
			if cmd.Flags().Changed("category") {
				cat, err := lookupCategory(ctx, store, categoryArg)
				if err != nil {
					return fmt.Errorf("category %q: %w", categoryArg, err)
				}
				update.CategoryID = &cat.ID
			}
			if cmd.Flags().Changed("fund") {
				fund, err := lookupFund(ctx, store, sourceArg)
				if err != nil {
					return fmt.Errorf("source fund %q: %w", sourceArg, err)
				}
				update.SourceFundID = &fund.ID
			}
			if clearDest {
				update.ClearDestination = true
			} else if cmd.Flags().Changed("to") {
				fund, err := lookupFund(ctx, store, destArg)
				if err != nil {
					return fmt.Errorf("destination fund %q: %w", destArg, err)
				}
				update.DestinationFundID = &fund.ID
			}
			if cmd.Flags().Changed("date") {
				date, err := time.Parse("2006-01-02", dateArg)
				if err != nil {
					return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateArg)
				}
				update.Date = &date
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if cmd.Flags().Changed("method") {
				update.PaymentMethod = &method
			}

			if update.IsEmpty() {
				return fmt.Errorf("nothing to update: supply at least one field flag")
			}

			expense, warnings, err := eng.UpdateExpense(ctx, args[0], update)
			if err != nil {
				return renderEngineError(err)
			}

			for _, warning := range warnings {
				fmt.Println(cli.FormatWarning(warning))
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated expense %s (%s)",
				expense.ID, expense.Amount.StringFixed(2))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&amountArg, "amount", "a", "", "new amount")
	cmd.Flags().StringVarP(&categoryArg, "category", "c", "", "new category ID or name")
	cmd.Flags().StringVarP(&sourceArg, "fund", "f", "", "new source fund ID or name")
	cmd.Flags().StringVarP(&destArg, "to", "t", "", "new destination fund")
	cmd.Flags().BoolVar(&clearDest, "no-destination", false, "remove the destination fund")
	cmd.Flags().StringVarP(&dateArg, "date", "", "", "new date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&description, "description", "D", "", "new description")
	cmd.Flags().StringVarP(&method, "method", "m", "", "new payment method")

	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Long: `Delete an expense and compensate the balances it touched: the source
fund is credited back and any destination fund is debited.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := newEngine(store)
			if err != nil {
				return err
			}

			if !skipConfirm {
				ok, err := cli.Confirm(os.Stdout, os.Stdin,
					fmt.Sprintf("Delete expense %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.InfoStyle.Render("Aborted."))
					return nil
				}
			}

			expense, err := eng.DeleteExpense(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted expense %s (%s restored to fund %d)",
				expense.ID, expense.Amount.StringFixed(2), expense.SourceFundID)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompt")

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		fromArg     string
		toArg       string
		categoryArg string
		fundArg     string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.ExpenseFilter{Limit: limit}

			if fromArg != "" {
				start, err := time.Parse("2006-01-02", fromArg)
				if err != nil {
					return fmt.Errorf("invalid from date %q", fromArg)
				}
				filter.StartDate = &start
			}
			if toArg != "" {
				end, err := time.Parse("2006-01-02", toArg)
				if err != nil {
					return fmt.Errorf("invalid to date %q", toArg)
				}
				filter.EndDate = &end
			}
			if categoryArg != "" {
				cat, err := lookupCategory(ctx, store, categoryArg)
				if err != nil {
					return fmt.Errorf("category %q: %w", categoryArg, err)
				}
				filter.CategoryID = &cat.ID
			}
			if fundArg != "" {
				fund, err := lookupFund(ctx, store, fundArg)
				if err != nil {
					return fmt.Errorf("fund %q: %w", fundArg, err)
				}
				filter.FundID = &fund.ID
			}

			expenses, err := store.GetExpenses(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list expenses: %w", err)
			}

			if len(expenses) == 0 {
				fmt.Println(cli.InfoStyle.Render("No expenses found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Date"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Transfer"),
				cli.TableHeaderStyle.Render("Description"))

			for _, expense := range expenses {
				transfer := ""
				if expense.IsTransfer() {
					transfer = fmt.Sprintf("%d -> %d", expense.SourceFundID, *expense.DestinationFundID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(expense.ID),
					expense.Date.Format("2006-01-02"),
					expense.Amount.StringFixed(2),
					transfer,
					expense.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&fromArg, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toArg, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&categoryArg, "category", "c", "", "filter by category")
	cmd.Flags().StringVarP(&fundArg, "fund", "f", "", "filter by fund (source or destination)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")

	return cmd
}

// shortID abbreviates an expense UUID for table display.
func shortID(id string) string {
	if idx := strings.Index(id, "-"); idx > 0 {
		return id[:idx]
	}
	return id
}
