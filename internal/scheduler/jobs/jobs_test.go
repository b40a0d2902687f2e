package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/pipeline"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

type fakePipeline struct {
	runCfg      *pipeline.RunConfig
	runResult   *pipeline.RunResult
	runErr      error
	universeRes []s1_universe.SyncResult
	universeErr error
	dailyDay    time.Time
	dailyErr    error
	pruned      int64
	pruneErr    error
}

func (f *fakePipeline) Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error) {
	f.runCfg = &cfg
	return f.runResult, f.runErr
}

func (f *fakePipeline) SyncUniverse(ctx context.Context, asOf time.Time) ([]s1_universe.SyncResult, error) {
	return f.universeRes, f.universeErr
}

func (f *fakePipeline) SyncDaily(ctx context.Context, asOf time.Time) (time.Time, error) {
	return f.dailyDay, f.dailyErr
}

func (f *fakePipeline) Maintenance(ctx context.Context) (int64, error) {
	return f.pruned, f.pruneErr
}

func TestWeeklyReportJob(t *testing.T) {
	p := &fakePipeline{
		runResult: &pipeline.RunResult{
			RunID:      "run_20250823_080000",
			Success:    true,
			ReportPath: "reports/momentum_2025-08-23.html",
		},
	}
	job := NewWeeklyReportJob(p, "0 0 8 * * SAT", testLogger())

	assert.Equal(t, "weekly_report", job.Name())
	assert.Equal(t, "0 0 8 * * SAT", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	require.NotNil(t, p.runCfg)
	assert.Empty(t, p.runCfg.RunID)
	assert.True(t, p.runCfg.Date.IsZero())
}

func TestWeeklyReportJobWrapsError(t *testing.T) {
	p := &fakePipeline{runErr: errors.New("rank stage: no rows")}
	job := NewWeeklyReportJob(p, "0 0 8 * * SAT", testLogger())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline run: rank stage: no rows")
}

func TestDailyBarsJob(t *testing.T) {
	p := &fakePipeline{dailyDay: time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)}
	job := NewDailyBarsJob(p, "0 0 18 * * MON-FRI", testLogger())

	assert.Equal(t, "daily_bars", job.Name())
	assert.Equal(t, "0 0 18 * * MON-FRI", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
}

func TestDailyBarsJobWrapsError(t *testing.T) {
	p := &fakePipeline{dailyErr: errors.New("status 429")}
	job := NewDailyBarsJob(p, "0 0 18 * * MON-FRI", testLogger())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync daily bars: status 429")
}

func TestUniverseSyncJob(t *testing.T) {
	p := &fakePipeline{
		universeRes: []s1_universe.SyncResult{
			{Cohort: contracts.CohortSP500, Members: 503, Added: []string{"NEW"}},
			{Cohort: contracts.CohortSP400, Members: 400, Removed: []string{"OLD"}},
			{Cohort: contracts.CohortMegacap, Members: 25},
		},
	}
	job := NewUniverseSyncJob(p, "0 30 7 * * FRI", testLogger())

	assert.Equal(t, "universe_sync", job.Name())
	assert.Equal(t, "0 30 7 * * FRI", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
}

func TestUniverseSyncJobWrapsError(t *testing.T) {
	p := &fakePipeline{universeErr: errors.New("ssga unreachable")}
	job := NewUniverseSyncJob(p, "0 30 7 * * FRI", testLogger())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync universe: ssga unreachable")
}

func TestMaintenanceJob(t *testing.T) {
	p := &fakePipeline{pruned: 17}
	job := NewMaintenanceJob(p, "0 0 3 * * SUN", testLogger())

	assert.Equal(t, "maintenance", job.Name())
	assert.Equal(t, "0 0 3 * * SUN", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
}

func TestMaintenanceJobWrapsError(t *testing.T) {
	p := &fakePipeline{pruneErr: errors.New("db down")}
	job := NewMaintenanceJob(p, "0 0 3 * * SUN", testLogger())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prune news: db down")
}
