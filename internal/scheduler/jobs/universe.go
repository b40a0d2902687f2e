package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mhan/momo/pkg/logger"
)

// UniverseSyncJob refreshes index membership for every cohort
// ⭐ SSOT: universe refresh fires through this job only
type UniverseSyncJob struct {
	pipeline Pipeline
	schedule string
	logger   *logger.Logger
}

// NewUniverseSyncJob creates a new universe sync job
func NewUniverseSyncJob(p Pipeline, schedule string, log *logger.Logger) *UniverseSyncJob {
	return &UniverseSyncJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *UniverseSyncJob) Name() string {
	return "universe_sync"
}

// Schedule returns the cron schedule
func (j *UniverseSyncJob) Schedule() string {
	return j.schedule
}

// Run refreshes every cohort snapshot
func (j *UniverseSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled universe sync")

	results, err := j.pipeline.SyncUniverse(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sync universe: %w", err)
	}

	members := 0
	changes := 0
	for _, r := range results {
		members += r.Members
		changes += len(r.Added) + len(r.Removed)
	}

	j.logger.WithFields(map[string]interface{}{
		"cohorts": len(results),
		"members": members,
		"changes": changes,
	}).Info("Scheduled universe sync completed")

	return nil
}
