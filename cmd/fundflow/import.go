package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fundflow/internal/cli"
	"fundflow/internal/engine"
	"fundflow/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	var (
		categoryArg    string
		fundArg        string
		dryRun         bool
		includeCredits bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.ofx> [file.qfx ...]",
		Short: "Import expenses from OFX/QFX bank statements",
		Long: `Parse OFX/QFX statement files and record each debit as an expense in
the given category, drawn from the given fund. Credits (deposits) are
skipped unless --include-credits is set. Each imported expense goes
through the same validation and balance accounting as a manually added
one. Glob patterns are expanded, so 'statements/*.ofx' works.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files matched %v", args)
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

			cat, err := lookupCategory(ctx, store, categoryArg)
			if err != nil {
				return fmt.Errorf("category %q: %w", categoryArg, err)
			}

			var sourceID *int64
			if fundArg != "" {
				fund, err := lookupFund(ctx, store, fundArg)
				if err != nil {
					return fmt.Errorf("fund %q: %w", fundArg, err)
				}
				sourceID = &fund.ID
			}

			parser := ofx.NewParser()
			var drafts []ofx.Draft
			for _, file := range files {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				parsed, err := parser.ParseFile(ctx, f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", file, err)
				}
				drafts = append(drafts, parsed...)
			}

			if dryRun {
				return printDryRun(drafts, includeCredits)
			}

			bar := newImportBar(len(drafts))

			var imported, skipped, rejected int
			for _, draft := range drafts {
				_ = bar.Add(1)

				if draft.Credit && !includeCredits {
					skipped++
					continue
				}

				_, err := eng.CreateExpense(ctx, engine.CreateExpenseInput{
					CategoryID:    cat.ID,
					SourceFundID:  sourceID,
					Amount:        draft.Amount,
					Date:          draft.Date,
					Description:   draft.Description,
					PaymentMethod: draft.Type,
				})
				if err != nil {
					var validationErr *engine.ValidationError
					if errors.As(err, &validationErr) {
						rejected++
						fmt.Println(cli.FormatWarning(fmt.Sprintf("skipped %q (%s): %v",
							draft.Description, draft.Amount.StringFixed(2), validationErr)))
						continue
					}
					return err
				}
				imported++
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Imported %d expenses (%d credits skipped, %d rejected)",
				imported, skipped, rejected)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&categoryArg, "category", "c", "", "category for imported expenses (required)")
	cmd.Flags().StringVarP(&fundArg, "fund", "f", "", "source fund for imported expenses")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and list without recording anything")
	cmd.Flags().BoolVar(&includeCredits, "include-credits", false, "also import credit transactions")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// expandGlobs resolves glob patterns; a pattern with no metacharacters passes
// through unchanged so missing files still produce an open error.
func expandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if matches == nil {
			files = append(files, arg)
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}

func printDryRun(drafts []ofx.Draft, includeCredits bool) error {
	for _, draft := range drafts {
		if draft.Credit && !includeCredits {
			fmt.Printf("%s  %10s  %s %s\n",
				draft.Date.Format("2006-01-02"),
				draft.Amount.StringFixed(2),
				draft.Description,
				cli.SubtleStyle.Render("(credit, skipped)"))
			continue
		}
		fmt.Printf("%s  %10s  %s\n",
			draft.Date.Format("2006-01-02"),
			draft.Amount.StringFixed(2),
			draft.Description)
	}
	fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("%d transactions parsed; nothing recorded (dry run)", len(drafts))))
	return nil
}

func newImportBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
