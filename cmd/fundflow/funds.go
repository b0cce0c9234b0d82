package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fundflow/internal/cli"
	"fundflow/internal/common"
)

func fundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funds",
		Short: "Manage funds",
		Long:  `List, add, inspect, and delete the funds expenses are paid from.`,
	}

	cmd.AddCommand(listFundsCmd())
	cmd.AddCommand(addFundCmd())
	cmd.AddCommand(showFundCmd())
	cmd.AddCommand(deleteFundCmd())

	return cmd
}

func listFundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all funds",
		Long:  `Display all active funds with their balances.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			funds, err := store.GetFunds(ctx)
			if err != nil {
				return fmt.Errorf("failed to get funds: %w", err)
			}

			if len(funds) == 0 {
				fmt.Println(cli.InfoStyle.Render("No funds found. Use 'fundflow funds add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Initial"),
				cli.TableHeaderStyle.Render("Balance"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 12),
				strings.Repeat("-", 12))

			for _, fund := range funds {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					fund.ID,
					fund.Name,
					fund.InitialBalance.StringFixed(2),
					formatMoney(fund.CurrentBalance))
			}

			return nil
		},
	}
}

func addFundCmd() *cobra.Command {
	var (
		fundDescription string
		initialBalance  string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new fund",
		Long:  `Create a new fund. The current balance starts at the initial balance.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fundName := args[0]

			initial, err := parseAmount(initialBalance)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fund, err := store.CreateFund(ctx, fundName, fundDescription, initial)
			if err != nil {
				return fmt.Errorf("failed to create fund: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created fund %q (ID %d) with balance %s",
				fund.Name, fund.ID, fund.CurrentBalance.StringFixed(2))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fundDescription, "description", "d", "", "fund description")
	cmd.Flags().StringVarP(&initialBalance, "balance", "b", "0", "initial balance")

	return cmd
}

func showFundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a fund and its recent expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fund, err := lookupFund(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("fund %q: %w", args[0], err)
			}

			expenses, err := store.GetExpensesByFund(ctx, fund.ID)
			if err != nil {
				return fmt.Errorf("failed to get expenses: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render(fund.Name))
			if fund.Description != "" {
				fmt.Println(cli.SubtleStyle.Render(fund.Description))
			}
			fmt.Printf("Initial balance: %s\n", fund.InitialBalance.StringFixed(2))
			fmt.Printf("Current balance: %s\n", formatMoney(fund.CurrentBalance))
			fmt.Printf("Expenses: %d\n", len(expenses))

			if len(expenses) == 0 {
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "\n%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Date"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Effect"),
				cli.TableHeaderStyle.Render("Description"))

			for _, expense := range expenses {
				effect := "debit"
				if expense.DestinationFundID != nil && *expense.DestinationFundID == fund.ID {
					effect = "credit"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					expense.Date.Format("2006-01-02"),
					expense.Amount.StringFixed(2),
					effect,
					expense.Description)
			}

			return nil
		},
	}
}

func deleteFundCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a fund",
		Long:  `Delete a fund. Funds referenced by any expense cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fund, err := lookupFund(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("fund %q: %w", args[0], err)
			}

			if !skipConfirm {
				ok, err := cli.Confirm(os.Stdout, os.Stdin,
					fmt.Sprintf("Delete fund %q?", fund.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println(cli.InfoStyle.Render("Aborted."))
					return nil
				}
			}

			if err := store.DeleteFund(ctx, fund.ID); err != nil {
				if errors.Is(err, common.ErrFundReferenced) {
					return common.NewUserError(
						fmt.Sprintf("fund %q still has recorded expenses; delete or reassign them first", fund.Name), err)
				}
				return fmt.Errorf("failed to delete fund: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted fund %q", fund.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "skip confirmation prompt")

	return cmd
}
