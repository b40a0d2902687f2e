package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/s0_data"
	"github.com/mhan/momo/pkg/database"
	"github.com/mhan/momo/pkg/logger"
)

// initdbCmd represents the initdb command
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the screener schema and tables",
	Long: `Creates the screener schema and every table the pipeline writes.

All statements are idempotent (CREATE IF NOT EXISTS), so re-running
against an initialized database is a no-op.

Tables:
  screener.constituents       - cohort membership snapshots
  screener.universe_changes   - membership change log
  screener.daily_prices       - daily bars
  screener.momentum_scores    - full rankings per run
  screener.top_picks          - screened picks per run
  screener.company_metadata   - cached reference data
  screener.company_news       - cached news

Example:
  momo initdb`,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(initdbCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Schema Setup ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Create schema and tables
	if err := s0_data.InitSchema(cmd.Context(), db.Pool); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	fmt.Println("\n✅ Schema ready")
	return nil
}
