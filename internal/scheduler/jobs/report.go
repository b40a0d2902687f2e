package jobs

import (
	"context"
	"fmt"

	"github.com/mhan/momo/internal/pipeline"
	"github.com/mhan/momo/pkg/logger"
)

// WeeklyReportJob runs the full screen and publishes the report
// ⭐ SSOT: the weekly screen fires through this job only
type WeeklyReportJob struct {
	pipeline Pipeline
	schedule string
	logger   *logger.Logger
}

// NewWeeklyReportJob creates a new weekly report job
func NewWeeklyReportJob(p Pipeline, schedule string, log *logger.Logger) *WeeklyReportJob {
	return &WeeklyReportJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *WeeklyReportJob) Name() string {
	return "weekly_report"
}

// Schedule returns the cron schedule
func (j *WeeklyReportJob) Schedule() string {
	return j.schedule
}

// Run executes the full pipeline
func (j *WeeklyReportJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled weekly screen")

	result, err := j.pipeline.Run(ctx, pipeline.RunConfig{})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"report": result.ReportPath,
	}).Info("Scheduled weekly screen completed")

	return nil
}
