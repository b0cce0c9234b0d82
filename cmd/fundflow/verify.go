package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fundflow/internal/cli"
	"fundflow/internal/common"
	"fundflow/internal/service"
)

func verifyCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit cached fund balances",
		Long: `Recompute every fund's balance from its expenses and compare it with
the cached value. A drifted fund means a past write bypassed the engine;
--fix overwrites the cache with the recomputed balance.`,
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

			var bar *progressbar.ProgressBar
			progress := func(done, total int) {
				if bar == nil {
					bar = newAuditBar(total)
				}
				_ = bar.Set(done)
			}

			if fix {
				repaired, err := eng.RepairBalances(ctx, progress)
				if err != nil {
					return fmt.Errorf("balance repair failed: %w", err)
				}
				if len(repaired) == 0 {
					fmt.Println(cli.FormatSuccess("All fund balances consistent; nothing to repair."))
					return nil
				}
				printDrift(repaired)
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Repaired %d fund balances.", len(repaired))))
				return nil
			}

			summaries, err := eng.VerifyBalances(ctx, progress)
			if err != nil {
				return fmt.Errorf("balance audit failed: %w", err)
			}

			var drifted []service.FundBalanceSummary
			for _, summary := range summaries {
				if !summary.Drift().IsZero() {
					drifted = append(drifted, summary)
				}
			}

			if len(drifted) == 0 {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("All %d fund balances consistent.", len(summaries))))
				return nil
			}

			printDrift(drifted)
			return fmt.Errorf("%w: %d of %d funds have drifted balances; run 'fundflow verify --fix' to repair",
				common.ErrInconsistent, len(drifted), len(summaries))
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "overwrite drifted caches with recomputed balances")

	return cmd
}

func printDrift(drifted []service.FundBalanceSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Fund"),
		cli.TableHeaderStyle.Render("Recorded"),
		cli.TableHeaderStyle.Render("Computed"),
		cli.TableHeaderStyle.Render("Drift"),
		cli.TableHeaderStyle.Render("Expenses"))

	for _, summary := range drifted {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			summary.FundName,
			summary.RecordedBalance.StringFixed(2),
			summary.ComputedBalance.StringFixed(2),
			cli.ErrorStyle.Render(summary.Drift().StringFixed(2)),
			summary.ExpenseCount)
	}
}

func newAuditBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Auditing fund balances...[reset]"),
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
