package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/s0_data/collector"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/internal/s2_signals"
	"github.com/mhan/momo/internal/screenconfig"
	"github.com/mhan/momo/internal/selection"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

var pipelineRunDate = time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)

type fakeSyncer struct {
	results []s1_universe.SyncResult
	err     error
	calls   int
}

func (f *fakeSyncer) Sync(_ context.Context, _ time.Time) ([]s1_universe.SyncResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeCollector struct {
	anchorCalls []collector.Config
	groupedDate time.Time
	err         error
}

func (f *fakeCollector) SyncGroupedBars(_ context.Context, _ time.Time, cfg collector.Config) (time.Time, error) {
	return f.groupedDate, f.err
}

func (f *fakeCollector) SyncAnchorBars(_ context.Context, _ time.Time, cfg collector.Config) error {
	f.anchorCalls = append(f.anchorCalls, cfg)
	return f.err
}

func (f *fakeCollector) BackfillUniverse(_ context.Context, _ time.Time, cfg collector.Config) ([]collector.FetchResult, error) {
	return []collector.FetchResult{{Symbol: "AAA", BarCount: 253}}, f.err
}

type fakeGate struct {
	failCohort contracts.Cohort
	failDate   time.Time
	calls      int
}

func (f *fakeGate) Check(_ context.Context, cohort contracts.Cohort, date time.Time) (*contracts.CoverageSnapshot, error) {
	f.calls++
	snap := &contracts.CoverageSnapshot{
		Date:      date,
		Cohort:    cohort,
		Expected:  100,
		Populated: 98,
		Coverage:  0.98,
		Passed:    true,
	}
	if cohort == f.failCohort && contracts.SameDate(date, f.failDate) {
		snap.Populated = 40
		snap.Coverage = 0.40
		snap.Passed = false
	}
	return snap, nil
}

type fakeSignals struct {
	anchors s2_signals.ResolvedAnchors
	rows    map[contracts.Cohort][]contracts.MomentumRow
}

func (f *fakeSignals) Resolve(_ context.Context, _ contracts.AnchorDates) (s2_signals.ResolvedAnchors, error) {
	return f.anchors, nil
}

func (f *fakeSignals) Build(_ context.Context, cohort contracts.Cohort, asOf time.Time, _ s2_signals.ResolvedAnchors) ([]contracts.MomentumRow, error) {
	rows, ok := f.rows[cohort]
	if !ok {
		return nil, fmt.Errorf("no rows staged for %s", cohort)
	}
	return rows, nil
}

type fakeScoreStore struct {
	contracts.ScoreRepository
	scores map[contracts.Cohort][]contracts.MomentumRow
	picks  map[contracts.Cohort][]contracts.MomentumRow
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{
		scores: make(map[contracts.Cohort][]contracts.MomentumRow),
		picks:  make(map[contracts.Cohort][]contracts.MomentumRow),
	}
}

func (f *fakeScoreStore) ReplaceScores(_ context.Context, cohort contracts.Cohort, _ time.Time, rows []contracts.MomentumRow) error {
	f.scores[cohort] = rows
	return nil
}

func (f *fakeScoreStore) ReplacePicks(_ context.Context, cohort contracts.Cohort, _ time.Time, rows []contracts.MomentumRow) error {
	f.picks[cohort] = rows
	return nil
}

type fakePriceStore struct {
	contracts.PriceRepository
	series []contracts.PriceBar
}

func (f *fakePriceStore) GetSeries(_ context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	return f.series, nil
}

type fakeCompanyStore struct {
	contracts.CompanyRepository
	pruneCutoff time.Time
	pruned      int64
}

func (f *fakeCompanyStore) PruneNews(_ context.Context, cutoff time.Time) (int64, error) {
	f.pruneCutoff = cutoff
	return f.pruned, nil
}

type fakeCacher struct {
	symbols []string
	err     error
}

func (f *fakeCacher) CacheCompanyData(_ context.Context, symbols []string) error {
	f.symbols = symbols
	return f.err
}

type fakeReports struct {
	path string
	err  error
}

func (f *fakeReports) Generate(_ context.Context, runDate time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

// row builds a complete momentum row; ranks are left for the ranker
func row(cohort contracts.Cohort, symbol string, current, lastWeek, lastMonth float64) contracts.MomentumRow {
	return contracts.MomentumRow{
		Cohort:          cohort,
		Symbol:          symbol,
		Name:            symbol + " Inc.",
		AsOf:            pipelineRunDate,
		Price:           100,
		CurrentReturn:   current,
		LastWeekReturn:  lastWeek,
		LastMonthReturn: lastMonth,
	}
}

type fixture struct {
	syncer    *fakeSyncer
	bars      *fakeCollector
	gate      *fakeGate
	signals   *fakeSignals
	scores    *fakeScoreStore
	prices    *fakePriceStore
	companies *fakeCompanyStore
	cacher    *fakeCacher
	reports   *fakeReports
}

func newFixture() *fixture {
	anchors := s2_signals.ResolvedAnchors{
		Yesterday:        time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC),
		WeekAgo:          time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		OneMonthAgo:      time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC),
		OneYearAgo:       time.Date(2024, 8, 22, 0, 0, 0, 0, time.UTC),
		YearPlusMonthAgo: time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC),
	}

	return &fixture{
		syncer: &fakeSyncer{results: []s1_universe.SyncResult{
			{Cohort: contracts.CohortSP500, Members: 503, Added: []string{"NEW"}},
			{Cohort: contracts.CohortSP400, Members: 400},
			{Cohort: contracts.CohortMegacap, Members: 25},
		}},
		bars: &fakeCollector{groupedDate: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
		gate: &fakeGate{},
		signals: &fakeSignals{
			anchors: anchors,
			rows: map[contracts.Cohort][]contracts.MomentumRow{
				// AAA improves, BBB and CCC slip
				contracts.CohortMegacap: {
					row(contracts.CohortMegacap, "AAA", 0.30, 0.01, 0.10),
					row(contracts.CohortMegacap, "BBB", 0.20, 0.02, 0.30),
					row(contracts.CohortMegacap, "CCC", 0.10, 0.03, 0.20),
				},
				// AAA holds the top, DDD improves, EEE slips
				contracts.CohortSP500: {
					row(contracts.CohortSP500, "AAA", 0.40, 0.01, 0.40),
					row(contracts.CohortSP500, "DDD", 0.30, 0.02, 0.20),
					row(contracts.CohortSP500, "EEE", 0.10, 0.03, 0.25),
				},
				contracts.CohortSP400: {
					row(contracts.CohortSP400, "FFF", 0.15, 0.01, 0.15),
					row(contracts.CohortSP400, "GGG", 0.05, 0.02, 0.50),
				},
			},
		},
		scores:    newFakeScoreStore(),
		prices:    &fakePriceStore{},
		companies: &fakeCompanyStore{pruned: 42},
		cacher:    &fakeCacher{},
		reports:   &fakeReports{path: "reports/momentum_2025-08-23.html"},
	}
}

func (fx *fixture) orchestrator() *Orchestrator {
	log := testLogger()
	return New(
		fx.syncer,
		fx.bars,
		fx.gate,
		fx.signals,
		selection.NewRanker(log),
		selection.NewScreener(selection.DefaultConfig(), log),
		fx.scores,
		fx.prices,
		fx.companies,
		fx.cacher,
		fx.reports,
		nil,
		log,
		screenconfig.Default(),
	)
}

func TestRunCompletesAllStages(t *testing.T) {
	fx := newFixture()
	o := fx.orchestrator()

	result, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"universe", "prices", "rank", "report"}, result.CompletedStages)
	assert.Equal(t, "reports/momentum_2025-08-23.html", result.ReportPath)
	assert.True(t, strings.HasPrefix(result.RunID, "run_"))
	assert.Len(t, result.ConfigHash, 64)
	assert.Equal(t, fx.syncer.results, result.Universe)

	// One anchor-bars sync with the screen's collector settings
	require.Len(t, fx.bars.anchorCalls, 1)
	assert.Equal(t, "VOO", fx.bars.anchorCalls[0].Benchmark)
	assert.Equal(t, 4, fx.bars.anchorCalls[0].Workers)

	// Three cohorts gated on five anchor sessions each
	assert.Equal(t, 15, fx.gate.calls)

	assert.Equal(t, map[contracts.Cohort]int{
		contracts.CohortMegacap: 3,
		contracts.CohortSP500:   3,
		contracts.CohortSP400:   2,
	}, result.Scored)
	assert.Equal(t, map[contracts.Cohort]int{
		contracts.CohortMegacap: 1,
		contracts.CohortSP500:   2,
		contracts.CohortSP400:   1,
	}, result.Picked)

	// The cache gets the deduplicated pick union in pick order
	assert.Equal(t, []string{"AAA", "DDD", "FFF"}, fx.cacher.symbols)
}

func TestRunStoresRankedScoresAndPicks(t *testing.T) {
	fx := newFixture()
	o := fx.orchestrator()

	_, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.NoError(t, err)

	mega := fx.scores.scores[contracts.CohortMegacap]
	require.Len(t, mega, 3)
	assert.Equal(t, "AAA", mega[0].Symbol)
	assert.Equal(t, 1, mega[0].CurrentRank)
	assert.Equal(t, 3, mega[0].LastMonthRank)
	assert.Equal(t, 2, mega[0].RankChange)

	// Only improving-or-steady rows survive the screen
	picks := fx.scores.picks[contracts.CohortMegacap]
	require.Len(t, picks, 1)
	assert.Equal(t, "AAA", picks[0].Symbol)

	sp500 := fx.scores.picks[contracts.CohortSP500]
	require.Len(t, sp500, 2)
	assert.Equal(t, "AAA", sp500[0].Symbol)
	assert.Equal(t, "DDD", sp500[1].Symbol)
}

func TestRunRerunStoresSameScoresAndPicks(t *testing.T) {
	fx := newFixture()
	o := fx.orchestrator()

	_, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.NoError(t, err)

	firstScores := map[contracts.Cohort][]contracts.MomentumRow{}
	for cohort, rows := range fx.scores.scores {
		firstScores[cohort] = append([]contracts.MomentumRow(nil), rows...)
	}
	firstPicks := map[contracts.Cohort][]contracts.MomentumRow{}
	for cohort, rows := range fx.scores.picks {
		firstPicks[cohort] = append([]contracts.MomentumRow(nil), rows...)
	}

	_, err = o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.NoError(t, err)

	assert.Equal(t, firstScores, fx.scores.scores)
	assert.Equal(t, firstPicks, fx.scores.picks)
}

func TestRunFailsClosedOnCoverageGate(t *testing.T) {
	fx := newFixture()
	fx.gate.failCohort = contracts.CohortMegacap
	fx.gate.failDate = fx.signals.anchors.OneYearAgo
	o := fx.orchestrator()

	result, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage gate failed for megacap on 2024-08-22")
	assert.Contains(t, err.Error(), "40/100")

	assert.False(t, result.Success)
	assert.Equal(t, []string{"universe", "prices"}, result.CompletedStages)
	assert.Empty(t, fx.scores.scores)
	assert.Empty(t, fx.scores.picks)
	assert.Nil(t, fx.cacher.symbols)
}

func TestRunStopsWhenUniverseFails(t *testing.T) {
	fx := newFixture()
	fx.syncer.err = fmt.Errorf("holdings endpoint returned 503")
	o := fx.orchestrator()

	result, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "universe stage")
	assert.Empty(t, result.CompletedStages)
	assert.Empty(t, fx.bars.anchorCalls)
}

func TestRunStopsWhenReportFails(t *testing.T) {
	fx := newFixture()
	fx.reports.err = fmt.Errorf("no picks stored")
	o := fx.orchestrator()

	result, err := o.Run(context.Background(), RunConfig{Date: pipelineRunDate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report stage")
	assert.Equal(t, []string{"universe", "prices", "rank"}, result.CompletedStages)
	// The cache ran before the render failed
	assert.Equal(t, []string{"AAA", "DDD", "FFF"}, fx.cacher.symbols)
}

func TestSyncDaily(t *testing.T) {
	fx := newFixture()
	o := fx.orchestrator()

	synced, err := o.SyncDaily(context.Background(), pipelineRunDate)
	require.NoError(t, err)
	assert.Equal(t, fx.bars.groupedDate, synced)
}

func TestMaintenancePrunesOldNews(t *testing.T) {
	fx := newFixture()
	o := fx.orchestrator()

	deleted, err := o.Maintenance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)

	wantCutoff := time.Now().UTC().AddDate(0, 0, -120)
	assert.WithinDuration(t, wantCutoff, fx.companies.pruneCutoff, time.Hour)
}

func TestCheckHistory(t *testing.T) {
	fx := newFixture()

	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 253; i++ {
		fx.prices.series = append(fx.prices.series, contracts.PriceBar{
			Symbol:    "AAPL",
			TradeDate: day,
			Close:     100 + float64(i),
		})
		day = day.AddDate(0, 0, 1)
	}

	o := fx.orchestrator()
	check, err := o.CheckHistory(context.Background(), "AAPL", pipelineRunDate)
	require.NoError(t, err)

	assert.True(t, check.Complete)
	assert.Equal(t, 253, check.Bars)
	assert.InDelta(t, 352.0/100.0-1, check.Return, 1e-12)
}

func TestCheckHistoryInsufficient(t *testing.T) {
	fx := newFixture()
	fx.prices.series = []contracts.PriceBar{
		{Symbol: "IPO", TradeDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), Close: 10},
	}

	o := fx.orchestrator()
	check, err := o.CheckHistory(context.Background(), "IPO", pipelineRunDate)
	require.NoError(t, err)

	assert.False(t, check.Complete)
	assert.Equal(t, 1, check.Bars)
}

func TestGenerateRunID(t *testing.T) {
	id := GenerateRunID()
	assert.True(t, strings.HasPrefix(id, "run_"))
	assert.Len(t, id, len("run_20060102_150405"))
}
