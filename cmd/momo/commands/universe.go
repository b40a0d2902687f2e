package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/pkg/database"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Manage index cohort membership",
	Long: `Syncs and inspects the tracked cohorts.

Cohorts:
  megacap - heaviest S&P 500 members by index weight
  sp500   - S&P 500
  sp400   - S&P 400 (mid cap)

Subcommands:
  sync    - refresh all cohorts from the holdings sources
  show    - print a cohort's current members
  changes - print a cohort's membership change log

Example:
  momo universe sync
  momo universe show sp500
  momo universe changes megacap --limit 20`,
}

var (
	universeSyncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Refresh all cohorts from the holdings sources",
		Long: `Downloads the ETF holdings for every cohort, derives the megacap
cohort from the S&P 500 weights, replaces each snapshot and logs the
membership changes. Falls back to the constituent tables on Wikipedia
when a holdings download fails.`,
		RunE: runUniverseSync,
	}

	universeShowCmd = &cobra.Command{
		Use:   "show [cohort]",
		Short: "Print a cohort's current members",
		Args:  cobra.ExactArgs(1),
		RunE:  runUniverseShow,
	}

	universeChangesCmd = &cobra.Command{
		Use:   "changes [cohort]",
		Short: "Print a cohort's membership change log",
		Args:  cobra.ExactArgs(1),
		RunE:  runUniverseChanges,
	}

	// Flags
	universeChangesLimit int
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeSyncCmd)
	universeCmd.AddCommand(universeShowCmd)
	universeCmd.AddCommand(universeChangesCmd)

	// Flags
	universeChangesCmd.Flags().IntVar(&universeChangesLimit, "limit", 50, "max change entries to print")
}

func runUniverseSync(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Universe Sync ===")

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	results, err := app.orchestrator.SyncUniverse(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("universe sync: %w", err)
	}

	fmt.Println("\n✅ Universe synced")
	fmt.Println()
	for _, r := range results {
		fmt.Printf("  %-10s %4d members  (+%d / -%d)\n",
			r.Cohort.String(), r.Members, len(r.Added), len(r.Removed))
	}

	return nil
}

func runUniverseShow(cmd *cobra.Command, args []string) error {
	cohort, err := parseCohort(args[0])
	if err != nil {
		return err
	}

	repo, closeFn, err := initUniverseRepo()
	if err != nil {
		return err
	}
	defer closeFn()

	universe, err := repo.GetCohort(cmd.Context(), cohort)
	if err != nil {
		return fmt.Errorf("load %s: %w", cohort, err)
	}

	fmt.Printf("%s (%d members, as of %s)\n\n",
		cohort.DisplayName(), universe.Count(), contracts.FormatDate(universe.AsOf))
	fmt.Printf("%-8s %-40s %8s\n", "SYMBOL", "NAME", "WEIGHT")
	for _, member := range universe.Members {
		fmt.Printf("%-8s %-40s %7.3f%%\n", member.Symbol, truncate(member.Name, 40), member.Weight)
	}

	return nil
}

func runUniverseChanges(cmd *cobra.Command, args []string) error {
	cohort, err := parseCohort(args[0])
	if err != nil {
		return err
	}

	repo, closeFn, err := initUniverseRepo()
	if err != nil {
		return err
	}
	defer closeFn()

	changes, err := repo.GetChanges(cmd.Context(), cohort, universeChangesLimit)
	if err != nil {
		return fmt.Errorf("load %s changes: %w", cohort, err)
	}

	if len(changes) == 0 {
		fmt.Printf("No changes logged for %s\n", cohort)
		return nil
	}

	fmt.Printf("%s change log (%d entries)\n\n", cohort.DisplayName(), len(changes))
	for _, change := range changes {
		marker := "+"
		if change.Action == contracts.ChangeRemoved {
			marker = "-"
		}
		fmt.Printf("  %s  %s %s\n", contracts.FormatDate(change.RunDate), marker, change.Symbol)
	}

	return nil
}

// initUniverseRepo builds the minimal graph the read-only universe
// subcommands need
func initUniverseRepo() (*s1_universe.Repository, func(), error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return s1_universe.NewRepository(db.Pool), db.Close, nil
}

func parseCohort(arg string) (contracts.Cohort, error) {
	cohort := contracts.Cohort(arg)
	if !cohort.Valid() {
		return "", fmt.Errorf("unknown cohort %q (want megacap, sp500 or sp400)", arg)
	}
	return cohort, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
