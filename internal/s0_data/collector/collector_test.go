package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/external/polygon"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

// fakeBars serves canned sessions keyed by date string
type fakeBars struct {
	mu           sync.Mutex
	grouped      map[string][]contracts.PriceBar
	daily        map[string]map[string]contracts.PriceBar
	series       map[string][]contracts.PriceBar
	seriesErr    map[string]error
	groupedCalls []string
}

func (f *fakeBars) GroupedDaily(ctx context.Context, date time.Time) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := contracts.FormatDate(date)
	f.groupedCalls = append(f.groupedCalls, key)
	return f.grouped[key], nil
}

func (f *fakeBars) DailyBar(ctx context.Context, symbol string, date time.Time) (*contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bar, ok := f.daily[symbol][contracts.FormatDate(date)]; ok {
		return &bar, nil
	}
	return nil, fmt.Errorf("no bar for %s: %w", symbol, polygon.ErrNoResults)
}

func (f *fakeBars) RangeDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seriesErr[symbol]; err != nil {
		return nil, err
	}
	return f.series[symbol], nil
}

// fakePrices stores bars in memory keyed by symbol and date
type fakePrices struct {
	mu   sync.Mutex
	bars map[string]map[string]contracts.PriceBar
}

func newFakePrices() *fakePrices {
	return &fakePrices{bars: make(map[string]map[string]contracts.PriceBar)}
}

func (f *fakePrices) SaveBatch(ctx context.Context, bars []contracts.PriceBar) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	written := 0
	for _, b := range bars {
		key := contracts.FormatDate(b.TradeDate)
		if f.bars[b.Symbol] == nil {
			f.bars[b.Symbol] = make(map[string]contracts.PriceBar)
		}
		if _, ok := f.bars[b.Symbol][key]; !ok {
			f.bars[b.Symbol][key] = b
			written++
		}
	}
	return written, nil
}

func (f *fakePrices) ResolveTradingDate(ctx context.Context, target time.Time, maxBack int) (time.Time, error) {
	d := contracts.PrevWeekday(contracts.DateOnly(target))
	for i := 0; i <= maxBack; i++ {
		if f.countOn(d) > 0 {
			return d, nil
		}
		d = contracts.StepBackWeekday(d)
	}
	return time.Time{}, contracts.ErrNoTradingData
}

func (f *fakePrices) GetCloses(ctx context.Context, symbols []string, date time.Time) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := contracts.FormatDate(date)
	out := make(map[string]float64)
	for _, s := range symbols {
		if bar, ok := f.bars[s][key]; ok {
			out[s] = bar.Close
		}
	}
	return out, nil
}

func (f *fakePrices) GetClose(ctx context.Context, symbol string, date time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bar, ok := f.bars[symbol][contracts.FormatDate(date)]; ok {
		return bar.Close, nil
	}
	return 0, errors.New("no rows")
}

func (f *fakePrices) CloseOnOrBefore(ctx context.Context, symbol string, target time.Time, maxBack int) (contracts.PriceBar, error) {
	d := contracts.PrevWeekday(contracts.DateOnly(target))
	for i := 0; i <= maxBack; i++ {
		f.mu.Lock()
		bar, ok := f.bars[symbol][contracts.FormatDate(d)]
		f.mu.Unlock()
		if ok {
			return bar, nil
		}
		d = contracts.StepBackWeekday(d)
	}
	return contracts.PriceBar{}, contracts.ErrNoTradingData
}

func (f *fakePrices) GetSeries(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contracts.PriceBar
	for _, bar := range f.bars[symbol] {
		if !bar.TradeDate.Before(from) && !bar.TradeDate.After(to) {
			out = append(out, bar)
		}
	}
	return out, nil
}

func (f *fakePrices) CountOnDate(ctx context.Context, symbols []string, date time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := contracts.FormatDate(date)
	count := 0
	for _, s := range symbols {
		if _, ok := f.bars[s][key]; ok {
			count++
		}
	}
	return count, nil
}

func (f *fakePrices) countOn(date time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := contracts.FormatDate(date)
	count := 0
	for _, days := range f.bars {
		if _, ok := days[key]; ok {
			count++
		}
	}
	return count
}

// fakeUniverse serves fixed cohorts
type fakeUniverse struct {
	cohorts map[contracts.Cohort][]contracts.Constituent
}

func (f *fakeUniverse) ReplaceCohort(ctx context.Context, cohort contracts.Cohort, members []contracts.Constituent) error {
	return nil
}

func (f *fakeUniverse) GetCohort(ctx context.Context, cohort contracts.Cohort) (*contracts.Universe, error) {
	return &contracts.Universe{Cohort: cohort, Members: f.cohorts[cohort]}, nil
}

func (f *fakeUniverse) LogChanges(ctx context.Context, changes []contracts.UniverseChange) error {
	return nil
}

func (f *fakeUniverse) GetChanges(ctx context.Context, cohort contracts.Cohort, limit int) ([]contracts.UniverseChange, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

func mkBar(symbol string, date time.Time, close float64) contracts.PriceBar {
	return contracts.PriceBar{
		Symbol:    symbol,
		TradeDate: date,
		Open:      close, High: close, Low: close, Close: close,
		Volume: 1000,
	}
}

var (
	thursday = time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)
	saturday = time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
)

func testUniverse() *fakeUniverse {
	return &fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{
		contracts.CohortSP500: {
			{Cohort: contracts.CohortSP500, Symbol: "NVDA"},
			{Cohort: contracts.CohortSP500, Symbol: "MSFT"},
		},
		contracts.CohortSP400: {
			{Cohort: contracts.CohortSP400, Symbol: "DECK"},
		},
	}}
}

func TestSyncGroupedBars(t *testing.T) {
	bars := &fakeBars{
		grouped: map[string][]contracts.PriceBar{
			"2025-08-21": {
				mkBar("NVDA", thursday, 177.4),
				mkBar("MSFT", thursday, 509.2),
				mkBar("DECK", thursday, 120.9),
				mkBar("ZZZZ", thursday, 3.5), // not in universe
			},
		},
		daily: map[string]map[string]contracts.PriceBar{
			"VOO": {"2025-08-21": mkBar("VOO", thursday, 512.3)},
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	resolved, err := c.SyncGroupedBars(context.Background(), saturday, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "2025-08-21", contracts.FormatDate(resolved), "saturday run should anchor on thursday")

	count, _ := prices.CountOnDate(context.Background(), []string{"NVDA", "MSFT", "DECK"}, thursday)
	assert.Equal(t, 3, count)
	_, ok := prices.bars["ZZZZ"]
	assert.False(t, ok, "symbols outside the universe must be dropped")

	close, err := prices.GetClose(context.Background(), "VOO", thursday)
	require.NoError(t, err, "benchmark bar should be stored alongside")
	assert.Equal(t, 512.3, close)
}

func TestSyncGroupedBarsDropsInvalidBars(t *testing.T) {
	bars := &fakeBars{
		grouped: map[string][]contracts.PriceBar{
			"2025-08-21": {
				mkBar("NVDA", thursday, 177.4),
				mkBar("MSFT", thursday, 0), // halted row, no close
				mkBar("DECK", thursday, 120.9),
			},
		},
		daily: map[string]map[string]contracts.PriceBar{
			"VOO": {"2025-08-21": mkBar("VOO", thursday, 512.3)},
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	_, err := c.SyncGroupedBars(context.Background(), saturday, DefaultConfig())
	require.NoError(t, err)

	_, ok := prices.bars["MSFT"]
	assert.False(t, ok, "zero-close bar must not be stored")
	count, _ := prices.CountOnDate(context.Background(), []string{"NVDA", "DECK"}, thursday)
	assert.Equal(t, 2, count)
}

func TestSyncGroupedBarsHolidayBacktrack(t *testing.T) {
	wednesday := thursday.AddDate(0, 0, -1)
	bars := &fakeBars{
		grouped: map[string][]contracts.PriceBar{
			// Thursday closed, Wednesday traded
			"2025-08-20": {
				mkBar("NVDA", wednesday, 175.0),
				mkBar("MSFT", wednesday, 505.0),
				mkBar("DECK", wednesday, 119.0),
			},
		},
		daily: map[string]map[string]contracts.PriceBar{
			"VOO": {"2025-08-20": mkBar("VOO", wednesday, 510.0)},
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	resolved, err := c.SyncGroupedBars(context.Background(), saturday, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "2025-08-20", contracts.FormatDate(resolved))
	assert.Equal(t, []string{"2025-08-21", "2025-08-20"}, bars.groupedCalls)
}

func TestSyncGroupedBarsSkipsWhenPopulated(t *testing.T) {
	bars := &fakeBars{
		daily: map[string]map[string]contracts.PriceBar{
			"VOO": {"2025-08-21": mkBar("VOO", thursday, 512.3)},
		},
	}
	prices := newFakePrices()
	_, err := prices.SaveBatch(context.Background(), []contracts.PriceBar{
		mkBar("NVDA", thursday, 177.4),
		mkBar("MSFT", thursday, 509.2),
		mkBar("DECK", thursday, 120.9),
	})
	require.NoError(t, err)

	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())
	resolved, err := c.SyncGroupedBars(context.Background(), saturday, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "2025-08-21", contracts.FormatDate(resolved))
	assert.Empty(t, bars.groupedCalls, "populated store must not trigger a grouped fetch")

	// The benchmark close is still ensured
	_, err = prices.GetClose(context.Background(), "VOO", thursday)
	assert.NoError(t, err)
}

func TestSyncGroupedBarsGivesUp(t *testing.T) {
	bars := &fakeBars{grouped: map[string][]contracts.PriceBar{}}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	cfg := DefaultConfig()
	cfg.MaxBackWeekdays = 3

	_, err := c.SyncGroupedBars(context.Background(), saturday, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrNoTradingData))

	// Thursday plus three weekday steps, never touching the weekend
	assert.Equal(t, []string{"2025-08-21", "2025-08-20", "2025-08-19", "2025-08-18"}, bars.groupedCalls)
}

func TestEnsureBenchmarkBarBacktracks(t *testing.T) {
	friday := time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)
	bars := &fakeBars{
		grouped: map[string][]contracts.PriceBar{
			"2025-08-22": {
				mkBar("NVDA", friday, 178.0),
				mkBar("MSFT", friday, 510.0),
				mkBar("DECK", friday, 121.0),
			},
		},
		// VOO has no Friday bar, only Thursday
		daily: map[string]map[string]contracts.PriceBar{
			"VOO": {"2025-08-21": mkBar("VOO", thursday, 512.3)},
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	err := c.ensureBenchmarkBar(context.Background(), friday, DefaultConfig())
	require.NoError(t, err)

	close, err := prices.GetClose(context.Background(), "VOO", thursday)
	require.NoError(t, err)
	assert.Equal(t, 512.3, close)
}

func TestSyncAnchorBars(t *testing.T) {
	anchors := contracts.AnchorsFor(saturday)
	grouped := make(map[string][]contracts.PriceBar)
	daily := map[string]map[string]contracts.PriceBar{"VOO": {}}
	for _, d := range anchors.All() {
		session := contracts.PrevWeekday(d)
		key := contracts.FormatDate(session)
		grouped[key] = []contracts.PriceBar{
			mkBar("NVDA", session, 150.0),
			mkBar("MSFT", session, 400.0),
			mkBar("DECK", session, 100.0),
		}
		daily["VOO"][key] = mkBar("VOO", session, 450.0)
	}

	bars := &fakeBars{grouped: grouped, daily: daily}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	err := c.SyncAnchorBars(context.Background(), saturday, DefaultConfig())
	require.NoError(t, err)

	for _, d := range anchors.All() {
		session := contracts.PrevWeekday(d)
		count, _ := prices.CountOnDate(context.Background(), []string{"NVDA", "MSFT", "DECK"}, session)
		assert.Equal(t, 3, count, "anchor %s should be stored", contracts.FormatDate(d))
	}
}

func TestBackfill(t *testing.T) {
	from := time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)

	bars := &fakeBars{
		series: map[string][]contracts.PriceBar{
			"NVDA": {mkBar("NVDA", thursday, 177.4), mkBar("NVDA", thursday.AddDate(0, 0, -1), 175.0)},
			"MSFT": {mkBar("MSFT", thursday, 509.2)},
		},
		seriesErr: map[string]error{
			"DECK": errors.New("rate limited"),
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	results, err := c.Backfill(context.Background(), []string{"NVDA", "MSFT", "DECK"}, from, to, DefaultConfig())
	require.NoError(t, err, "partial failures should not fail the whole backfill")
	require.Len(t, results, 3)

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			assert.Equal(t, "DECK", r.Symbol)
		}
	}
	assert.Equal(t, 1, failed)

	count, _ := prices.CountOnDate(context.Background(), []string{"NVDA", "MSFT"}, thursday)
	assert.Equal(t, 2, count)
}

func TestBackfillAllFail(t *testing.T) {
	bars := &fakeBars{
		seriesErr: map[string]error{
			"NVDA": errors.New("boom"),
			"MSFT": errors.New("boom"),
		},
	}
	prices := newFakePrices()
	c := NewCollector(bars, prices, testUniverse(), nil, testLogger())

	_, err := c.Backfill(context.Background(), []string{"NVDA", "MSFT"},
		thursday.AddDate(-1, 0, 0), thursday, DefaultConfig())
	assert.Error(t, err)
}
