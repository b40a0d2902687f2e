package jobs

import (
	"context"
	"fmt"

	"github.com/mhan/momo/pkg/logger"
)

// MaintenanceJob prunes stale cached news
type MaintenanceJob struct {
	pipeline Pipeline
	schedule string
	logger   *logger.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(p Pipeline, schedule string, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule returns the cron schedule
func (j *MaintenanceJob) Schedule() string {
	return j.schedule
}

// Run prunes news rows past the retention window
func (j *MaintenanceJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled maintenance")

	pruned, err := j.pipeline.Maintenance(ctx)
	if err != nil {
		return fmt.Errorf("prune news: %w", err)
	}

	if pruned > 0 {
		j.logger.WithField("pruned", pruned).Info("Maintenance completed")
	}

	return nil
}
