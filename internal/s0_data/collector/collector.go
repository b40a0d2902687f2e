package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/external/polygon"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
)

// Collector orchestrates daily bar collection
// ⭐ SSOT: market data collection lives in this package only
type Collector struct {
	bars     contracts.BarSource
	prices   contracts.PriceRepository
	universe contracts.UniverseRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// Config holds collector tuning
type Config struct {
	// Workers bounds concurrent backfill fetches. The API rate
	// limiter still applies underneath.
	Workers int

	// MaxBackWeekdays bounds the holiday backtrack when a session
	// returns no bars
	MaxBackWeekdays int

	// Benchmark is the index ETF whose close anchors report return
	// comparisons. ETFs do not appear in grouped stock bars, so it is
	// fetched per ticker.
	Benchmark string
}

// DefaultConfig matches the free API tier
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		MaxBackWeekdays: 5,
		Benchmark:       "VOO",
	}
}

// NewCollector creates a new Collector instance
func NewCollector(
	bars contracts.BarSource,
	prices contracts.PriceRepository,
	universe contracts.UniverseRepository,
	m *metrics.Metrics,
	log *logger.Logger,
) *Collector {
	return &Collector{
		bars:     bars,
		prices:   prices,
		universe: universe,
		metrics:  m,
		logger:   log.WithField("module", "collector"),
	}
}

// SyncGroupedBars stores the whole-universe session closest to the
// last trading Thursday at or before asOf. Returns the trading date
// actually stored.
func (c *Collector) SyncGroupedBars(ctx context.Context, asOf time.Time, cfg Config) (time.Time, error) {
	target := contracts.LastThursday(asOf)

	symbols, err := c.universeSymbols(ctx)
	if err != nil {
		return time.Time{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"target":  contracts.FormatDate(target),
		"symbols": len(symbols),
	}).Info("Starting grouped bar sync")

	resolved, err := c.syncSession(ctx, target, symbols, cfg)
	if err != nil {
		return time.Time{}, err
	}

	// The benchmark ETF never appears in grouped stock bars
	if err := c.ensureBenchmarkBar(ctx, resolved, cfg); err != nil {
		c.logger.WithError(err).WithField("benchmark", cfg.Benchmark).Warn("Benchmark bar missing")
	}

	return resolved, nil
}

// SyncAnchorBars makes sure every anchor date a ranking needs has a
// stored session nearby. Anchors older than the weekly cadence has
// reached are fetched the same way the Thursday sync fetches.
func (c *Collector) SyncAnchorBars(ctx context.Context, asOf time.Time, cfg Config) error {
	symbols, err := c.universeSymbols(ctx)
	if err != nil {
		return err
	}

	for _, target := range contracts.AnchorsFor(asOf).All() {
		resolved, err := c.syncSession(ctx, target, symbols, cfg)
		if err != nil {
			return fmt.Errorf("sync anchor %s: %w", contracts.FormatDate(target), err)
		}
		if err := c.ensureBenchmarkBar(ctx, resolved, cfg); err != nil {
			c.logger.WithError(err).WithField("benchmark", cfg.Benchmark).Warn("Benchmark bar missing")
		}
	}
	return nil
}

// syncSession fetches and stores one session's grouped bars unless the
// store is already populated for it. Returns the session date used.
func (c *Collector) syncSession(ctx context.Context, target time.Time, symbols []string, cfg Config) (time.Time, error) {
	// Weekend targets can only ever resolve to the prior weekday
	probe := contracts.PrevWeekday(contracts.DateOnly(target))

	// Re-runs skip the fetch when the session is already stored
	populated, err := c.isPopulated(ctx, probe, symbols)
	if err != nil {
		return time.Time{}, err
	}
	if populated {
		c.logger.WithField("date", contracts.FormatDate(probe)).Debug("Session already populated")
		return probe, nil
	}

	resolved, bars, err := c.backtrackGrouped(ctx, target, cfg.MaxBackWeekdays)
	if err != nil {
		return time.Time{}, err
	}

	// The backtrack may land on a session stored by an earlier run
	if !contracts.SameDate(resolved, probe) {
		populated, err := c.isPopulated(ctx, resolved, symbols)
		if err != nil {
			return time.Time{}, err
		}
		if populated {
			c.logger.WithField("date", contracts.FormatDate(resolved)).Debug("Resolved session already populated")
			return resolved, nil
		}
	}

	keep := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		keep[s] = true
	}

	filtered := make([]contracts.PriceBar, 0, len(symbols))
	dropped := 0
	for _, b := range bars {
		if !keep[b.Symbol] {
			continue
		}
		// Bars are stamped with the session open in UTC; pinning the
		// resolved date keeps them aligned with the populated probe
		b.TradeDate = resolved
		if err := b.Validate(); err != nil {
			dropped++
			c.logger.WithError(err).Debug("Dropping unstorable bar")
			continue
		}
		filtered = append(filtered, b)
	}

	written, err := c.prices.SaveBatch(ctx, filtered)
	if err != nil {
		return time.Time{}, fmt.Errorf("save grouped bars: %w", err)
	}
	c.metrics.AddRows("daily_prices", written)

	c.logger.WithFields(map[string]interface{}{
		"date":    contracts.FormatDate(resolved),
		"fetched": len(bars),
		"kept":    len(filtered),
		"dropped": dropped,
		"written": written,
	}).Info("Stored grouped bars")

	return resolved, nil
}

// backtrackGrouped tries the target session, then steps back one
// weekday at a time while the market was closed. Weekends are skipped
// without consuming an attempt.
func (c *Collector) backtrackGrouped(ctx context.Context, target time.Time, maxBack int) (time.Time, []contracts.PriceBar, error) {
	attempts := 0
	d := contracts.DateOnly(target)

	for {
		if contracts.IsWeekend(d) {
			d = d.AddDate(0, 0, -1)
			continue
		}

		start := time.Now()
		bars, err := c.bars.GroupedDaily(ctx, d)
		c.metrics.ObserveFetch("polygon", time.Since(start), err)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("fetch grouped bars for %s: %w", contracts.FormatDate(d), err)
		}

		if len(bars) > 0 {
			return d, bars, nil
		}

		c.logger.WithField("date", contracts.FormatDate(d)).Debug("No grouped bars, stepping back")

		attempts++
		if attempts > maxBack {
			return time.Time{}, nil, fmt.Errorf("no grouped bars within %d weekdays before %s: %w",
				maxBack, contracts.FormatDate(target), contracts.ErrNoTradingData)
		}
		d = d.AddDate(0, 0, -1)
	}
}

// ensureBenchmarkBar stores the benchmark ETF's bar near d, skipping
// the fetch when it is already stored
func (c *Collector) ensureBenchmarkBar(ctx context.Context, d time.Time, cfg Config) error {
	if cfg.Benchmark == "" {
		return nil
	}

	if _, err := c.prices.GetClose(ctx, cfg.Benchmark, contracts.DateOnly(d)); err == nil {
		return nil
	}

	attempts := 0
	cur := contracts.DateOnly(d)
	for {
		if contracts.IsWeekend(cur) {
			cur = cur.AddDate(0, 0, -1)
			continue
		}

		start := time.Now()
		bar, err := c.bars.DailyBar(ctx, cfg.Benchmark, cur)
		c.metrics.ObserveFetch("polygon", time.Since(start), err)
		if err == nil {
			bar.TradeDate = cur
			written, err := c.prices.SaveBatch(ctx, []contracts.PriceBar{*bar})
			if err != nil {
				return fmt.Errorf("save benchmark bar: %w", err)
			}
			c.metrics.AddRows("daily_prices", written)
			c.logger.WithFields(map[string]interface{}{
				"benchmark": cfg.Benchmark,
				"date":      contracts.FormatDate(cur),
				"close":     bar.Close,
			}).Debug("Stored benchmark bar")
			return nil
		}
		if !errors.Is(err, polygon.ErrNoResults) {
			return fmt.Errorf("fetch benchmark bar: %w", err)
		}

		attempts++
		if attempts > cfg.MaxBackWeekdays {
			return fmt.Errorf("no %s bar within %d weekdays before %s: %w",
				cfg.Benchmark, cfg.MaxBackWeekdays, contracts.FormatDate(d), contracts.ErrNoTradingData)
		}
		cur = cur.AddDate(0, 0, -1)
	}
}

// isPopulated reports whether the store already holds bars for more
// than 90% of the universe on the date
func (c *Collector) isPopulated(ctx context.Context, d time.Time, symbols []string) (bool, error) {
	if len(symbols) == 0 {
		return false, nil
	}
	count, err := c.prices.CountOnDate(ctx, symbols, contracts.DateOnly(d))
	if err != nil {
		return false, fmt.Errorf("count bars on %s: %w", contracts.FormatDate(d), err)
	}
	return float64(count) > contracts.MinPriceCoverage*float64(len(symbols)), nil
}

// universeSymbols returns the union of both index cohorts. The megacap
// cohort is a subset of sp500 and adds nothing here.
func (c *Collector) universeSymbols(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string

	for _, cohort := range []contracts.Cohort{contracts.CohortSP500, contracts.CohortSP400} {
		u, err := c.universe.GetCohort(ctx, cohort)
		if err != nil {
			return nil, fmt.Errorf("load %s cohort: %w", cohort, err)
		}
		for _, m := range u.Members {
			if !seen[m.Symbol] {
				seen[m.Symbol] = true
				symbols = append(symbols, m.Symbol)
			}
		}
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe is empty; run a universe sync first")
	}
	return symbols, nil
}
