package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fundflow/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long: `List and add expense categories, and manage which funds each
category may spend from. A category with no linked funds is unrestricted.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(linkCategoryCmd())
	cmd.AddCommand(unlinkCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Long:  `Display all active categories with their linked funds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'fundflow categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Name"),
				cli.TableHeaderStyle.Render("Funds"))

			for _, cat := range categories {
				funds, err := store.FundsForCategory(ctx, cat.ID)
				if err != nil {
					return fmt.Errorf("failed to get funds for category %d: %w", cat.ID, err)
				}

				names := make([]string, 0, len(funds))
				for _, fund := range funds {
					names = append(names, fund.Name)
				}
				linked := strings.Join(names, ", ")
				if linked == "" {
					linked = cli.SubtleStyle.Render("(unrestricted)")
				}

				fmt.Fprintf(w, "%d\t%s\t%s\n", cat.ID, cat.Name, linked)
			}

			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var categoryDescription string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := store.CreateCategory(ctx, args[0], categoryDescription)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created category %q (ID %d)", cat.Name, cat.ID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&categoryDescription, "description", "d", "", "category description")

	return cmd
}

func linkCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <category> <fund>",
		Short: "Allow a category to spend from a fund",
		Long: `Add a fund to a category's admissible source set. Once a category has
linked funds, expenses in it must name one of them as their source.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := lookupCategory(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("category %q: %w", args[0], err)
			}
			fund, err := lookupFund(ctx, store, args[1])
			if err != nil {
				return fmt.Errorf("fund %q: %w", args[1], err)
			}

			if err := store.AssociateFund(ctx, cat.ID, fund.ID); err != nil {
				return fmt.Errorf("failed to link fund: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Category %q may now spend from fund %q", cat.Name, fund.Name)))
			return nil
		},
	}
}

func unlinkCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <category> <fund>",
		Short: "Remove a fund from a category's source set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := lookupCategory(ctx, store, args[0])
			if err != nil {
				return fmt.Errorf("category %q: %w", args[0], err)
			}
			fund, err := lookupFund(ctx, store, args[1])
			if err != nil {
				return fmt.Errorf("fund %q: %w", args[1], err)
			}

			if err := store.DissociateFund(ctx, cat.ID, fund.ID); err != nil {
				return fmt.Errorf("failed to unlink fund: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Category %q no longer spends from fund %q", cat.Name, fund.Name)))
			return nil
		},
	}
}
