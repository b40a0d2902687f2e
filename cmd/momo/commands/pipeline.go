package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/pipeline"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full screen end to end",
	Long: `Runs the complete weekly screen for --date (today when omitted):

universe → prices → rank → report

- universe: refresh cohort membership from the holdings sources
- prices:   sync grouped bars for every anchor session
- rank:     coverage gate, trailing returns, ranks and picks
- report:   cache reference data, render HTML, regenerate the index

This is the same sequence the weekly_report job runs on schedule.

Example:
  momo pipeline
  momo pipeline --date 2025-08-22`,
	RunE: runPipeline,
}

var (
	// Flags
	pipelineDate string
)

func init() {
	rootCmd.AddCommand(pipelineCmd)

	// Flags
	pipelineCmd.Flags().StringVar(&pipelineDate, "date", "", "run date (YYYY-MM-DD, default: today)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Pipeline ===")

	var runDate time.Time
	if pipelineDate != "" {
		parsed, err := contracts.ParseDate(pipelineDate)
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", pipelineDate)
		}
		runDate = parsed
	}

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	runConfig := pipeline.RunConfig{
		Date:  runDate,
		RunID: pipeline.GenerateRunID(),
	}

	fmt.Printf("\n🚀 Starting pipeline run: %s\n\n", runConfig.RunID)

	result, err := app.orchestrator.Run(cmd.Context(), runConfig)
	if err != nil {
		printRunResult(result)
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	printRunResult(result)
	return nil
}

func printRunResult(result *pipeline.RunResult) {
	if result == nil {
		return
	}

	if result.Success {
		fmt.Println("\n✅ Pipeline Run Completed")
	} else {
		fmt.Println("\n❌ Pipeline Run Failed")
	}
	fmt.Println()

	// Summary
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Date: %s\n", contracts.FormatDate(result.Date))
	if result.Success {
		fmt.Printf("Duration: %.2fs\n", result.Duration.Seconds())
	}
	if result.ConfigHash != "" {
		fmt.Printf("Config: %s\n", shortHash(result.ConfigHash))
	}
	fmt.Println()

	// Stages
	fmt.Println("Completed Stages:")
	for _, stage := range result.CompletedStages {
		fmt.Printf("  ✅ %s\n", stage)
	}
	if result.Error != nil {
		fmt.Printf("  ❌ %v\n", result.Error)
	}
	fmt.Println()

	// Results
	if len(result.Universe) > 0 {
		members := 0
		for _, r := range result.Universe {
			members += r.Members
		}
		fmt.Printf("Universe: %d members across %d cohorts\n", members, len(result.Universe))
	}
	for _, cohort := range contracts.AllCohorts() {
		if scored, ok := result.Scored[cohort]; ok {
			fmt.Printf("%s: %d scored, %d picks\n", cohort.DisplayName(), scored, result.Picked[cohort])
		}
	}
	if result.ReportPath != "" {
		fmt.Printf("Report: %s\n", result.ReportPath)
	}
}

// shortHash abbreviates a config hash for display
func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
