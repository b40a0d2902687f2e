package s2_signals

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

// fakePrices serves canned closes keyed by date string
type fakePrices struct {
	contracts.PriceRepository
	closes map[string]map[string]float64
}

func (f *fakePrices) ResolveTradingDate(ctx context.Context, target time.Time, maxBack int) (time.Time, error) {
	d := contracts.PrevWeekday(contracts.DateOnly(target))
	for i := 0; i <= maxBack; i++ {
		if len(f.closes[contracts.FormatDate(d)]) > 0 {
			return d, nil
		}
		d = contracts.StepBackWeekday(d)
	}
	return time.Time{}, contracts.ErrNoTradingData
}

func (f *fakePrices) GetCloses(ctx context.Context, symbols []string, date time.Time) (map[string]float64, error) {
	day := f.closes[contracts.FormatDate(date)]
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if c, ok := day[s]; ok {
			out[s] = c
		}
	}
	return out, nil
}

type fakeUniverse struct {
	contracts.UniverseRepository
	cohorts map[contracts.Cohort][]contracts.Constituent
}

func (f *fakeUniverse) GetCohort(ctx context.Context, cohort contracts.Cohort) (*contracts.Universe, error) {
	return &contracts.Universe{Cohort: cohort, Members: f.cohorts[cohort]}, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

// runDate is a Saturday; the calendar anchors land on
// Fri 08-22, Fri 08-15, Tue 07-22, Thu 2024-08-22, Mon 2024-07-22
var runDate = time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)

func snapshotStore() *fakePrices {
	return &fakePrices{closes: map[string]map[string]float64{
		"2025-08-22": {"NVDA": 130, "MSFT": 330, "AAPL": 220},
		"2025-08-15": {"NVDA": 125, "MSFT": 300, "AAPL": 200},
		"2025-07-22": {"NVDA": 120, "MSFT": 315, "AAPL": 210},
		"2024-08-22": {"NVDA": 100, "MSFT": 300},
		"2024-07-22": {"NVDA": 96, "MSFT": 300, "AAPL": 200},
	}}
}

func sp500Members() *fakeUniverse {
	return &fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{
		contracts.CohortSP500: {
			{Cohort: contracts.CohortSP500, Symbol: "NVDA", Name: "NVIDIA Corp"},
			{Cohort: contracts.CohortSP500, Symbol: "MSFT", Name: "Microsoft Corp"},
			{Cohort: contracts.CohortSP500, Symbol: "AAPL", Name: "Apple Inc."},
		},
	}}
}

func TestResolve(t *testing.T) {
	b := NewBuilder(sp500Members(), snapshotStore(), testLogger())

	res, err := b.Resolve(context.Background(), contracts.AnchorsFor(runDate))
	require.NoError(t, err)

	assert.Equal(t, "2025-08-22", contracts.FormatDate(res.Yesterday))
	assert.Equal(t, "2025-08-15", contracts.FormatDate(res.WeekAgo))
	assert.Equal(t, "2025-07-22", contracts.FormatDate(res.OneMonthAgo))
	assert.Equal(t, "2024-08-22", contracts.FormatDate(res.OneYearAgo))
	assert.Equal(t, "2024-07-22", contracts.FormatDate(res.YearPlusMonthAgo))
}

func TestResolveBacktracksToAvailableSession(t *testing.T) {
	store := snapshotStore()

	// Friday's session is gone; Thursday still has data
	store.closes["2025-08-21"] = store.closes["2025-08-22"]
	delete(store.closes, "2025-08-22")

	b := NewBuilder(sp500Members(), store, testLogger())

	res, err := b.Resolve(context.Background(), contracts.AnchorsFor(runDate))
	require.NoError(t, err)
	assert.Equal(t, "2025-08-21", contracts.FormatDate(res.Yesterday))
}

func TestResolveFailsWhenStoreIsEmpty(t *testing.T) {
	b := NewBuilder(sp500Members(), &fakePrices{closes: map[string]map[string]float64{}}, testLogger())

	_, err := b.Resolve(context.Background(), contracts.AnchorsFor(runDate))
	assert.ErrorIs(t, err, contracts.ErrNoTradingData)
}

func TestBuild(t *testing.T) {
	b := NewBuilder(sp500Members(), snapshotStore(), testLogger())
	ctx := context.Background()

	res, err := b.Resolve(ctx, contracts.AnchorsFor(runDate))
	require.NoError(t, err)

	rows, err := b.Build(ctx, contracts.CohortSP500, runDate, res)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byms := make(map[string]contracts.MomentumRow, len(rows))
	for _, r := range rows {
		byms[r.Symbol] = r
	}

	nvda := byms["NVDA"]
	assert.Equal(t, contracts.CohortSP500, nvda.Cohort)
	assert.Equal(t, "NVIDIA Corp", nvda.Name)
	assert.Equal(t, "2025-08-23", contracts.FormatDate(nvda.AsOf))
	assert.InDelta(t, 130.0, nvda.Price, 1e-9)
	assert.InDelta(t, 0.30, nvda.CurrentReturn, 1e-9)
	assert.InDelta(t, 0.04, nvda.LastWeekReturn, 1e-9)
	assert.InDelta(t, 0.25, nvda.LastMonthReturn, 1e-9)

	msft := byms["MSFT"]
	assert.InDelta(t, 0.10, msft.CurrentReturn, 1e-9)
	assert.InDelta(t, 0.10, msft.LastWeekReturn, 1e-9)
	assert.InDelta(t, 0.05, msft.LastMonthReturn, 1e-9)

	// AAPL has no year-ago close: current return unresolved, the
	// columns it can support still carry values
	aapl := byms["AAPL"]
	assert.True(t, math.IsNaN(aapl.CurrentReturn))
	assert.InDelta(t, 0.10, aapl.LastWeekReturn, 1e-9)
	assert.InDelta(t, 0.05, aapl.LastMonthReturn, 1e-9)
}

func TestBuildEmptyCohort(t *testing.T) {
	b := NewBuilder(&fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{}}, snapshotStore(), testLogger())

	res := ResolvedAnchors{Yesterday: runDate}
	_, err := b.Build(context.Background(), contracts.CohortSP400, runDate, res)
	assert.ErrorContains(t, err, "empty")
}
