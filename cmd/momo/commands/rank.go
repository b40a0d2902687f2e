package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank all cohorts and store the picks",
	Long: `Resolves the anchor sessions for --date (today when omitted),
checks price coverage, computes trailing returns against each anchor,
ranks every cohort and stores the scores and screened picks.

Requires synced membership and prices. Re-running for the same date
replaces the stored rows.

Example:
  momo rank
  momo rank --date 2025-08-21`,
	RunE: runRank,
}

var (
	// Flags
	rankDate string
)

func init() {
	rootCmd.AddCommand(rankCmd)

	// Flags
	rankCmd.Flags().StringVar(&rankDate, "date", "", "as-of date (YYYY-MM-DD, default: today)")
}

func runRank(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Rank ===")

	asOf, err := resolveDate(rankDate)
	if err != nil {
		return err
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	fmt.Printf("\n📅 As of: %s\n\n", contracts.FormatDate(asOf))

	outcome, err := app.orchestrator.RankCohorts(cmd.Context(), asOf)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	fmt.Println("✅ Ranking completed")
	fmt.Println()

	fmt.Println("Anchor sessions:")
	fmt.Printf("  yesterday:      %s\n", contracts.FormatDate(outcome.Anchors.Yesterday))
	fmt.Printf("  week ago:       %s\n", contracts.FormatDate(outcome.Anchors.WeekAgo))
	fmt.Printf("  month ago:      %s\n", contracts.FormatDate(outcome.Anchors.OneMonthAgo))
	fmt.Printf("  year ago:       %s\n", contracts.FormatDate(outcome.Anchors.OneYearAgo))
	fmt.Printf("  year + month:   %s\n", contracts.FormatDate(outcome.Anchors.YearPlusMonthAgo))
	fmt.Println()

	for _, cohort := range contracts.AllCohorts() {
		fmt.Printf("  %-10s %4d scored, %2d picks\n",
			cohort.String(), outcome.Scored[cohort], outcome.Picked[cohort])
	}

	if len(outcome.PickSymbols) > 0 {
		fmt.Printf("\nPicks: %s\n", strings.Join(outcome.PickSymbols, ", "))
	}

	return nil
}
