package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the report for a scored run",
	Long: `Renders the HTML report for the run scored at --date (the latest
scored run when omitted), refreshes cached metadata and news for the
picked symbols first, regenerates the site index, and mails the
report when SMTP delivery is enabled.

Example:
  momo report
  momo report --date 2025-08-21`,
	RunE: runReport,
}

var (
	// Flags
	reportDate string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	// Flags
	reportCmd.Flags().StringVar(&reportDate, "date", "", "scored run date (YYYY-MM-DD, default: latest)")
}

func runReport(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Report ===")

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	ctx := cmd.Context()

	// Resolve the run date. All cohorts are scored together, so any
	// cohort's latest run date is the run date.
	var runDate time.Time
	if reportDate != "" {
		runDate, err = contracts.ParseDate(reportDate)
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", reportDate)
		}
	} else {
		runDate, err = app.scoreRepo.LatestAsOf(ctx, contracts.CohortMegacap)
		if err != nil {
			if errors.Is(err, contracts.ErrNoTradingData) {
				return fmt.Errorf("no scored runs yet (run momo rank first)")
			}
			return fmt.Errorf("resolve latest run: %w", err)
		}
	}

	// The report stage wants the picked symbols so the reference cache
	// covers them
	seen := make(map[string]bool)
	var pickSymbols []string
	for _, cohort := range contracts.AllCohorts() {
		picks, err := app.scoreRepo.GetPicks(ctx, cohort, runDate)
		if err != nil {
			return fmt.Errorf("load %s picks: %w", cohort, err)
		}
		for _, pick := range picks {
			if !seen[pick.Symbol] {
				seen[pick.Symbol] = true
				pickSymbols = append(pickSymbols, pick.Symbol)
			}
		}
	}

	fmt.Printf("\n📅 Run date: %s (%d picks)\n\n", contracts.FormatDate(runDate), len(pickSymbols))

	path, err := app.orchestrator.PublishReport(ctx, runDate, pickSymbols)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	fmt.Printf("✅ Report written: %s\n", path)
	if app.cfg.SMTP.Enabled {
		fmt.Printf("📧 Mailed to %d recipients\n", len(app.cfg.SMTP.To))
	}

	return nil
}
