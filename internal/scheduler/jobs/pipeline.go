package jobs

import (
	"context"
	"time"

	"github.com/mhan/momo/internal/pipeline"
	"github.com/mhan/momo/internal/s1_universe"
)

// Pipeline is the slice of the orchestrator the scheduled jobs drive
type Pipeline interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
	SyncUniverse(ctx context.Context, asOf time.Time) ([]s1_universe.SyncResult, error)
	SyncDaily(ctx context.Context, asOf time.Time) (time.Time, error)
	Maintenance(ctx context.Context) (int64, error)
}
