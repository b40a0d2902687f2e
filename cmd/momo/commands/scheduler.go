package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhan/momo/internal/api"
	"github.com/mhan/momo/internal/api/handlers"
	"github.com/mhan/momo/internal/runfeed"
	"github.com/mhan/momo/internal/scheduler"
	"github.com/mhan/momo/internal/scheduler/jobs"
	"github.com/mhan/momo/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run and manage the scheduled jobs",
	Long: `Starts the scheduler daemon or manages its jobs.

Jobs (schedules from the screen config, exchange-local time):
- weekly_report: full pipeline + report, Saturdays 08:00
- daily_bars:    grouped-bars sync, weekdays 18:00
- universe_sync: membership refresh, Fridays 07:30
- maintenance:   stored news pruning, Sundays 03:00

Subcommands:
  start   - run the daemon (scheduler + API + run feed)
  list    - print the registered jobs and schedules
  run     - run one job immediately and wait for it
  status  - print this process's job statistics

Example:
  momo scheduler start
  momo scheduler list
  momo scheduler run daily_bars`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler daemon",
		Long: `Runs the scheduler with every job registered, plus the read-only
API and the websocket run feed in the same process, so /api/v1/runs
and /ws/runs reflect the live scheduler.

The daemon stops on Ctrl+C after a graceful shutdown.`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the registered jobs and schedules",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print this process's job statistics",
		Long: `Prints per-job run statistics for a freshly built scheduler.

A fresh process has no history. The running daemon serves its live
history at /api/v1/runs.`,
		RunE: showSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== momo Scheduler ===")

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	// 1. Start the run feed hub so job events reach websocket clients
	feed := runfeed.NewHub(app.log)
	feed.Start()
	defer feed.Stop()

	// 2. Build the scheduler with every job registered
	sched, err := initScheduler(app, feed)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// 3. Build the API in the same process so /api/v1/runs and
	// /ws/runs see the live scheduler
	cache := redis.NewCache(app.redis, "momo")
	screenHandler := handlers.NewScreenHandler(app.universeRepo, app.scoreRepo, cache, app.log)
	runsHandler := handlers.NewRunsHandler(sched, app.log)
	reportsHandler := handlers.NewReportsHandler(app.cfg.Report.ReportDir, app.log)
	router := api.NewRouter(screenHandler, runsHandler, reportsHandler, feed, app.metrics, app.cfg.Report.SiteDir, app.log)
	server := api.New(app.cfg, app.log, router)

	// 4. Start scheduler and server
	sched.Start()
	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Printf("\n✅ API on http://localhost:%s (run feed at /ws/runs)\n", app.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server shutdown failed")
	}
	sched.Stop()

	fmt.Println("Stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	fmt.Println("Registered jobs:")
	for _, job := range buildJobs(app) {
		fmt.Printf("  - %-15s %s\n", job.Name(), job.Schedule())
	}

	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	jobList := buildJobs(app)

	var job scheduler.Job
	for _, j := range jobList {
		if j.Name() == jobName {
			job = j
			break
		}
	}
	if job == nil {
		names := make([]string, len(jobList))
		for i, j := range jobList {
			names[i] = j.Name()
		}
		return fmt.Errorf("unknown job %q (known: %s)", jobName, strings.Join(names, ", "))
	}

	fmt.Printf("Running job: %s\n\n", jobName)

	start := time.Now()
	if err := job.Run(cmd.Context()); err != nil {
		return fmt.Errorf("job %s: %w", jobName, err)
	}

	fmt.Printf("\n✅ Job %s completed in %.2fs\n", jobName, time.Since(start).Seconds())
	return nil
}

func showSchedulerStatus(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close()

	sched, err := initScheduler(app, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]

		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}

		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}

		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// buildJobs constructs the four scheduled jobs against the app's
// orchestrator
func buildJobs(app *app) []scheduler.Job {
	return []scheduler.Job{
		jobs.NewWeeklyReportJob(app.orchestrator, app.screen.Schedules.WeeklyReport, app.log),
		jobs.NewDailyBarsJob(app.orchestrator, app.screen.Schedules.DailyBars, app.log),
		jobs.NewUniverseSyncJob(app.orchestrator, app.screen.Schedules.UniverseSync, app.log),
		jobs.NewMaintenanceJob(app.orchestrator, app.screen.Schedules.Maintenance, app.log),
	}
}

// initScheduler builds the scheduler on the screen's clock with every
// job registered. feed may be nil.
func initScheduler(app *app, feed scheduler.EventPublisher) (*scheduler.Scheduler, error) {
	loc, err := app.screen.Meta.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	sched := scheduler.New(feed, loc, app.log)

	for _, job := range buildJobs(app) {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}
