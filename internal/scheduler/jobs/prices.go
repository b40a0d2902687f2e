package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// DailyBarsJob ingests the latest grouped daily bars
// ⭐ SSOT: daily bar ingestion fires through this job only
type DailyBarsJob struct {
	pipeline Pipeline
	schedule string
	logger   *logger.Logger
}

// NewDailyBarsJob creates a new daily bars job
func NewDailyBarsJob(p Pipeline, schedule string, log *logger.Logger) *DailyBarsJob {
	return &DailyBarsJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DailyBarsJob) Name() string {
	return "daily_bars"
}

// Schedule returns the cron schedule
func (j *DailyBarsJob) Schedule() string {
	return j.schedule
}

// Run fetches grouped bars for the most recent session
func (j *DailyBarsJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily bar sync")

	day, err := j.pipeline.SyncDaily(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sync daily bars: %w", err)
	}

	j.logger.WithField("date", contracts.FormatDate(day)).Info("Scheduled daily bar sync completed")
	return nil
}
