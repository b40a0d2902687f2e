package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
)

// pricesCmd represents the prices command
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Collect and inspect daily bars",
	Long: `Syncs daily bars from the market-data API into the local store.

Subcommands:
  sync     - grouped bars for the anchor session at or before a date
  backfill - full trailing-year history for the whole universe
  check    - one symbol's stored window and trailing return
  coverage - per-cohort close coverage on a date

Example:
  momo prices sync
  momo prices backfill
  momo prices check NVDA --date 2025-08-21
  momo prices coverage --date 2025-08-21`,
}

var (
	pricesSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Sync grouped bars for the anchor session",
		Long: `Resolves the Thursday anchor at or before --date (today when
omitted), backtracking past holidays, and stores that session's
grouped bars plus the benchmark bar. Already-stored rows are skipped.`,
		RunE: runPricesSync,
	}

	pricesBackfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Backfill trailing history for every member",
		Long: `Fetches a full trailing year of daily bars for every symbol in
every cohort on a bounded worker pool. Useful after the first
universe sync and after index rebalances.

The free API tier allows 5 requests per minute, so a cold backfill
of the full universe takes hours. Progress lands in the log.`,
		RunE: runPricesBackfill,
	}

	pricesCheckCmd = &cobra.Command{
		Use:   "check [symbol]",
		Short: "Check one symbol's stored history",
		Args:  cobra.ExactArgs(1),
		RunE:  runPricesCheck,
	}

	pricesCoverageCmd = &cobra.Command{
		Use:   "coverage",
		Short: "Check per-cohort close coverage",
		Long: `Measures how many cohort members have a stored close on exactly
--date (today when omitted). No backtracking is applied, so a date
with no session shows zero coverage.`,
		RunE: runPricesCoverage,
	}

	// Flags
	pricesDate string
)

func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.AddCommand(pricesSyncCmd)
	pricesCmd.AddCommand(pricesBackfillCmd)
	pricesCmd.AddCommand(pricesCheckCmd)
	pricesCmd.AddCommand(pricesCoverageCmd)

	// Flags
	pricesCmd.PersistentFlags().StringVar(&pricesDate, "date", "", "as-of date (YYYY-MM-DD, default: today)")
}

func runPricesSync(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Prices Sync ===")

	asOf, err := resolveDate(pricesDate)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	session, err := app.orchestrator.SyncDaily(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("sync grouped bars: %w", err)
	}

	fmt.Printf("\n✅ Synced grouped bars for %s\n", contracts.FormatDate(session))
	return nil
}

func runPricesBackfill(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Prices Backfill ===")

	asOf, err := resolveDate(pricesDate)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	fmt.Printf("\n📅 As of: %s\n", contracts.FormatDate(asOf))
	fmt.Println("🚀 Fetching trailing history for the whole universe")
	fmt.Println()

	results, err := app.orchestrator.Backfill(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	bars := 0
	var failed []string
	for _, r := range results {
		bars += r.BarCount
		if r.Error != nil {
			failed = append(failed, r.Symbol)
		}
	}

	fmt.Printf("✅ Backfill completed: %d symbols, %d bars stored\n", len(results), bars)
	if len(failed) > 0 {
		fmt.Printf("\n⚠️  %d symbols failed:\n", len(failed))
		for _, symbol := range failed {
			fmt.Printf("  - %s\n", symbol)
		}
	}

	return nil
}

func runPricesCheck(cmd *cobra.Command, args []string) error {
	symbol := args[0]

	asOf, err := resolveDate(pricesDate)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	check, err := app.orchestrator.CheckHistory(cmd.Context(), symbol, asOf)
	if err != nil {
		return fmt.Errorf("check history: %w", err)
	}

	fmt.Printf("📊 %s\n", check.Symbol)
	fmt.Printf("   Window: %s → %s\n", contracts.FormatDate(check.From), contracts.FormatDate(check.To))
	fmt.Printf("   Bars stored: %d\n", check.Bars)
	if check.Complete {
		fmt.Printf("   Trailing return: %.2f%%\n", check.Return*100)
	} else {
		fmt.Println("   Trailing return: insufficient history (run momo prices backfill)")
	}

	return nil
}

func runPricesCoverage(cmd *cobra.Command, args []string) error {
	asOf, err := resolveDate(pricesDate)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	snaps, err := app.gate.CheckAll(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("check coverage: %w", err)
	}

	fmt.Printf("📊 Close coverage on %s\n\n", contracts.FormatDate(asOf))
	for _, snap := range snaps {
		mark := "✅"
		if !snap.Passed {
			mark = "❌"
		}
		fmt.Printf("  %s %-8s %4d/%-4d (%.1f%%)\n",
			mark, snap.Cohort, snap.Populated, snap.Expected, snap.Coverage*100)
	}

	return nil
}
