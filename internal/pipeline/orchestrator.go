package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/s0_data/collector"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/internal/s2_signals"
	"github.com/mhan/momo/internal/screenconfig"
	"github.com/mhan/momo/internal/selection"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
)

// Stage seams. The orchestrator coordinates through these so a run can
// be exercised without live sources.

// UniverseSyncer refreshes cohort membership
type UniverseSyncer interface {
	Sync(ctx context.Context, asOf time.Time) ([]s1_universe.SyncResult, error)
}

// BarCollector syncs the price sessions a cycle needs
type BarCollector interface {
	SyncGroupedBars(ctx context.Context, asOf time.Time, cfg collector.Config) (time.Time, error)
	SyncAnchorBars(ctx context.Context, asOf time.Time, cfg collector.Config) error
	BackfillUniverse(ctx context.Context, asOf time.Time, cfg collector.Config) ([]collector.FetchResult, error)
}

// CoverageGate validates stored coverage before scoring
type CoverageGate interface {
	Check(ctx context.Context, cohort contracts.Cohort, date time.Time) (*contracts.CoverageSnapshot, error)
}

// SignalBuilder resolves anchors and assembles momentum rows
type SignalBuilder interface {
	Resolve(ctx context.Context, anchors contracts.AnchorDates) (s2_signals.ResolvedAnchors, error)
	Build(ctx context.Context, cohort contracts.Cohort, asOf time.Time, res s2_signals.ResolvedAnchors) ([]contracts.MomentumRow, error)
}

// CompanyCacher refreshes cached reference metadata and news
type CompanyCacher interface {
	CacheCompanyData(ctx context.Context, symbols []string) error
}

// ReportPublisher renders and publishes the report for a run date
type ReportPublisher interface {
	Generate(ctx context.Context, runDate time.Time) (string, error)
}

// Orchestrator coordinates the weekly pipeline
// ⭐ SSOT: stage sequencing lives here only
type Orchestrator struct {
	universe  UniverseSyncer
	bars      BarCollector
	gate      CoverageGate
	signals   SignalBuilder
	ranker    *selection.Ranker
	screener  *selection.Screener
	scores    contracts.ScoreRepository
	prices    contracts.PriceRepository
	companies contracts.CompanyRepository
	cacher    CompanyCacher
	reports   ReportPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	screen    *screenconfig.Config
}

// RunConfig holds configuration for one pipeline run
type RunConfig struct {
	Date  time.Time
	RunID string
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string
	Date            time.Time
	ConfigHash      string
	Success         bool
	Error           error
	CompletedStages []string
	Universe        []s1_universe.SyncResult
	Scored          map[contracts.Cohort]int
	Picked          map[contracts.Cohort]int
	ReportPath      string
	Duration        time.Duration
}

// New creates a new orchestrator
func New(
	universe UniverseSyncer,
	bars BarCollector,
	gate CoverageGate,
	signals SignalBuilder,
	ranker *selection.Ranker,
	screener *selection.Screener,
	scores contracts.ScoreRepository,
	prices contracts.PriceRepository,
	companies contracts.CompanyRepository,
	cacher CompanyCacher,
	reports ReportPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
	screen *screenconfig.Config,
) *Orchestrator {
	if screen == nil {
		screen = screenconfig.Default()
	}
	return &Orchestrator{
		universe:  universe,
		bars:      bars,
		gate:      gate,
		signals:   signals,
		ranker:    ranker,
		screener:  screener,
		scores:    scores,
		prices:    prices,
		companies: companies,
		cacher:    cacher,
		reports:   reports,
		metrics:   m,
		logger:    log.WithComponent("pipeline"),
		screen:    screen,
	}
}

// Run executes the complete pipeline:
// universe → prices → rank → report
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	if config.RunID == "" {
		config.RunID = GenerateRunID()
	}
	if config.Date.IsZero() {
		loc, err := o.screen.Meta.Location()
		if err != nil {
			loc = time.UTC
		}
		config.Date = time.Now().In(loc)
	}
	runDate := contracts.DateOnly(config.Date)

	result := &RunResult{
		RunID:           config.RunID,
		Date:            runDate,
		CompletedStages: make([]string, 0, len(contracts.AllStages())),
	}
	if hash, err := screenconfig.Hash(o.screen); err == nil {
		result.ConfigHash = hash
	}

	defer func() {
		o.metrics.ObserveJob("pipeline", time.Since(startTime), result.Error)
	}()

	o.logger.WithFields(map[string]interface{}{
		"run_id":      config.RunID,
		"date":        contracts.FormatDate(runDate),
		"screen":      o.screen.Meta.ScreenID,
		"config_hash": result.ConfigHash,
	}).Info("Starting pipeline run")

	universe, err := o.SyncUniverse(ctx, runDate)
	if err != nil {
		result.Error = fmt.Errorf("universe stage: %w", err)
		return result, result.Error
	}
	result.Universe = universe
	result.CompletedStages = append(result.CompletedStages, contracts.StageUniverse.String())

	if err := o.SyncPrices(ctx, runDate); err != nil {
		result.Error = fmt.Errorf("prices stage: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, contracts.StagePrices.String())

	ranked, err := o.RankCohorts(ctx, runDate)
	if err != nil {
		result.Error = fmt.Errorf("rank stage: %w", err)
		return result, result.Error
	}
	result.Scored = ranked.Scored
	result.Picked = ranked.Picked
	result.CompletedStages = append(result.CompletedStages, contracts.StageRank.String())

	path, err := o.PublishReport(ctx, runDate, ranked.PickSymbols)
	if err != nil {
		result.Error = fmt.Errorf("report stage: %w", err)
		return result, result.Error
	}
	result.ReportPath = path
	result.CompletedStages = append(result.CompletedStages, contracts.StageReport.String())

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   config.RunID,
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
		"report":   result.ReportPath,
	}).Info("Pipeline run completed")

	return result, nil
}

// SyncUniverse refreshes every cohort snapshot
func (o *Orchestrator) SyncUniverse(ctx context.Context, asOf time.Time) ([]s1_universe.SyncResult, error) {
	o.logger.Info("Running universe stage")

	results, err := o.universe.Sync(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("universe sync: %w", err)
	}

	members := 0
	for _, r := range results {
		members += r.Members
	}
	o.logger.WithFields(map[string]interface{}{
		"cohorts": len(results),
		"members": members,
	}).Info("Universe stage completed")

	return results, nil
}

// SyncPrices syncs grouped bars for every anchor session the ranking
// at asOf will read
func (o *Orchestrator) SyncPrices(ctx context.Context, asOf time.Time) error {
	o.logger.Info("Running prices stage")

	if err := o.bars.SyncAnchorBars(ctx, asOf, o.collectorConfig()); err != nil {
		return fmt.Errorf("anchor bars sync: %w", err)
	}

	o.logger.Info("Prices stage completed")
	return nil
}

// SyncDaily syncs one grouped-bars session anchored on the last
// trading Thursday at or before asOf (the daily job)
func (o *Orchestrator) SyncDaily(ctx context.Context, asOf time.Time) (time.Time, error) {
	return o.bars.SyncGroupedBars(ctx, asOf, o.collectorConfig())
}

// Backfill fetches full trailing history for the whole universe
func (o *Orchestrator) Backfill(ctx context.Context, asOf time.Time) ([]collector.FetchResult, error) {
	return o.bars.BackfillUniverse(ctx, asOf, o.collectorConfig())
}

// RankOutcome summarizes the rank stage
type RankOutcome struct {
	Anchors s2_signals.ResolvedAnchors
	Scored  map[contracts.Cohort]int
	Picked  map[contracts.Cohort]int
	// PickSymbols is the deduplicated union of picks across cohorts,
	// in pick order
	PickSymbols []string
}

// RankCohorts resolves the anchor sessions, gates stored coverage, and
// ranks + screens every cohort. Scores and picks land in the store per
// cohort as they complete.
func (o *Orchestrator) RankCohorts(ctx context.Context, asOf time.Time) (*RankOutcome, error) {
	o.logger.Info("Running rank stage")
	runDate := contracts.DateOnly(asOf)

	res, err := o.signals.Resolve(ctx, contracts.AnchorsFor(runDate))
	if err != nil {
		return nil, fmt.Errorf("resolve anchors: %w", err)
	}

	// Every cohort must clear the coverage gate on every anchor
	// session before anything is scored
	for _, cohort := range contracts.AllCohorts() {
		for _, date := range res.Dates() {
			snap, err := o.gate.Check(ctx, cohort, date)
			if err != nil {
				return nil, fmt.Errorf("coverage check %s on %s: %w", cohort, contracts.FormatDate(date), err)
			}
			if !snap.Passed {
				return nil, fmt.Errorf("coverage gate failed for %s on %s: %d/%d closes stored (%.1f%%)",
					cohort, contracts.FormatDate(date), snap.Populated, snap.Expected, snap.Coverage*100)
			}
		}
	}

	outcome := &RankOutcome{
		Anchors: res,
		Scored:  make(map[contracts.Cohort]int),
		Picked:  make(map[contracts.Cohort]int),
	}
	seen := make(map[string]bool)

	for _, cohort := range contracts.AllCohorts() {
		rows, err := o.signals.Build(ctx, cohort, runDate, res)
		if err != nil {
			return nil, fmt.Errorf("build %s returns: %w", cohort, err)
		}

		ranked := o.ranker.Rank(ctx, rows)
		if err := o.scores.ReplaceScores(ctx, cohort, runDate, ranked); err != nil {
			return nil, fmt.Errorf("store %s scores: %w", cohort, err)
		}
		o.metrics.AddRows("momentum_scores", len(ranked))
		o.metrics.SetScoredSymbols(cohort.String(), len(ranked))

		picks := o.screener.Screen(ctx, ranked)
		if err := o.scores.ReplacePicks(ctx, cohort, runDate, picks); err != nil {
			return nil, fmt.Errorf("store %s picks: %w", cohort, err)
		}
		o.metrics.AddRows("top_picks", len(picks))

		outcome.Scored[cohort] = len(ranked)
		outcome.Picked[cohort] = len(picks)
		for _, pick := range picks {
			if !seen[pick.Symbol] {
				seen[pick.Symbol] = true
				outcome.PickSymbols = append(outcome.PickSymbols, pick.Symbol)
			}
		}

		o.logger.WithFields(map[string]interface{}{
			"cohort": cohort.String(),
			"scored": len(ranked),
			"picks":  len(picks),
		}).Info("Cohort ranked")
	}

	o.logger.WithField("picks", len(outcome.PickSymbols)).Info("Rank stage completed")
	return outcome, nil
}

// PublishReport refreshes the reference cache for the picked symbols
// and renders the report for runDate
func (o *Orchestrator) PublishReport(ctx context.Context, runDate time.Time, pickSymbols []string) (string, error) {
	o.logger.Info("Running report stage")

	if err := o.cacher.CacheCompanyData(ctx, pickSymbols); err != nil {
		return "", fmt.Errorf("cache company data: %w", err)
	}

	path, err := o.reports.Generate(ctx, runDate)
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}

	o.logger.WithField("path", path).Info("Report stage completed")
	return path, nil
}

// Maintenance prunes stored news older than the configured retention
func (o *Orchestrator) Maintenance(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-o.screen.Maintenance.NewsRetention())

	deleted, err := o.companies.PruneNews(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune news: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"cutoff":  contracts.FormatDate(cutoff),
		"deleted": deleted,
	}).Info("Maintenance completed")

	return deleted, nil
}

// HistoryCheck summarizes one symbol's stored series against the
// trailing window
type HistoryCheck struct {
	Symbol   string
	From     time.Time
	To       time.Time
	Bars     int
	Return   float64
	Complete bool
}

// CheckHistory runs the series-variant trailing return over one
// symbol's stored bars, reporting whether the window is fully covered
func (o *Orchestrator) CheckHistory(ctx context.Context, symbol string, asOf time.Time) (*HistoryCheck, error) {
	to := contracts.DateOnly(asOf)
	// A year of sessions spans roughly a calendar year; three extra
	// weeks absorb holidays so a full window fits when the store has it
	from := contracts.AddYearsClamped(to, -1).AddDate(0, 0, -21)

	bars, err := o.prices.GetSeries(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load %s series: %w", symbol, err)
	}

	check := &HistoryCheck{
		Symbol: symbol,
		From:   from,
		To:     to,
		Bars:   len(bars),
	}

	ret, err := s2_signals.TrailingReturn(bars, o.screen.Momentum.WindowSessions)
	if err != nil {
		if errors.Is(err, s2_signals.ErrInsufficientHistory) {
			// Incomplete coverage is the diagnostic's answer, not a
			// failure
			return check, nil
		}
		return nil, err
	}
	check.Return = ret
	check.Complete = true
	return check, nil
}

func (o *Orchestrator) collectorConfig() collector.Config {
	return collector.Config{
		Workers:         o.screen.Prices.Workers,
		MaxBackWeekdays: o.screen.Prices.MaxBackWeekdays,
		Benchmark:       o.screen.Prices.Benchmark,
	}
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405"))
}
