package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/internal/selection"
	"github.com/mhan/momo/pkg/database"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a system status snapshot",
	Long: `Prints a one-shot status snapshot:
- database health and pool usage
- cohort snapshots and latest scored runs
- reports on disk

Example:
  momo status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Status ===")
	fmt.Println()

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	fmt.Println("🗄  Database")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if health, err := db.HealthCheck(ctx); err != nil {
		fmt.Printf("%-15s %s\n", "Healthy:", "no")
		fmt.Printf("%-15s %s\n", "Error:", err)
	} else {
		fmt.Printf("%-15s %s\n", "Healthy:", "yes")
		fmt.Printf("%-15s %s\n", "Ping:", health.ResponseTime.Round(time.Microsecond))
		fmt.Printf("%-15s %d/%d\n", "Connections:", health.Stats.TotalConns, health.Stats.MaxConns)
	}
	fmt.Println()

	universeRepo := s1_universe.NewRepository(db.Pool)
	scoreRepo := selection.NewRepository(db.Pool)

	fmt.Println("📊 Cohorts")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	for _, cohort := range contracts.AllCohorts() {
		universe, err := universeRepo.GetCohort(ctx, cohort)
		if err != nil {
			fmt.Printf("%-10s error: %v\n", cohort.String()+":", err)
			continue
		}
		if universe.Count() == 0 {
			fmt.Printf("%-10s not synced\n", cohort.String()+":")
			continue
		}

		scored := "never scored"
		if asOf, err := scoreRepo.LatestAsOf(ctx, cohort); err == nil {
			scored = "scored " + contracts.FormatDate(asOf)
		}
		fmt.Printf("%-10s %4d members (as of %s), %s\n",
			cohort.String()+":", universe.Count(), contracts.FormatDate(universe.AsOf), scored)
	}
	fmt.Println()

	fmt.Println("📄 Reports")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if entries, err := os.ReadDir(cfg.Report.ReportDir); err != nil {
		fmt.Println("report dir missing (no reports yet)")
	} else {
		count := 0
		newest := ""
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, "momentum_") && strings.HasSuffix(name, ".html") {
				count++
				if name > newest {
					newest = name
				}
			}
		}
		fmt.Printf("%-15s %d\n", "Stored:", count)
		if newest != "" {
			fmt.Printf("%-15s %s\n", "Newest:", newest)
		}
	}
	fmt.Println()

	fmt.Println("⚙️  Config")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-15s %s\n", "Env:", cfg.Env)
	fmt.Printf("%-15s %s\n", "Screen file:", cfg.ScreenConfigPath)
	fmt.Printf("%-15s %v\n", "Redis:", cfg.Redis.Enabled)
	fmt.Printf("%-15s %v\n", "SMTP:", cfg.SMTP.Enabled)

	return nil
}
