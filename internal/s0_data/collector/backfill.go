package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mhan/momo/internal/contracts"
)

// FetchResult represents one symbol's backfill outcome
type FetchResult struct {
	Symbol   string
	BarCount int
	Error    error
}

// Backfill fetches daily history in [from, to] for every symbol and
// stores it. Fetches run on a bounded worker pool; the API rate
// limiter spaces the actual requests.
func (c *Collector) Backfill(ctx context.Context, symbols []string, from, to time.Time, cfg Config) ([]FetchResult, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"from":    contracts.FormatDate(from),
		"to":      contracts.FormatDate(to),
		"workers": workers,
	}).Info("Starting backfill")

	results := make([]FetchResult, 0, len(symbols))
	resultCh := make(chan FetchResult, len(symbols))
	symbolCh := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.backfillWorker(ctx, workerID, symbolCh, resultCh, from, to)
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	successCount := 0
	failCount := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Error != nil {
			failCount++
		} else {
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Backfill completed")

	if failCount == len(results) && failCount > 0 {
		return results, fmt.Errorf("backfill failed for all %d symbols", failCount)
	}
	return results, nil
}

// BackfillUniverse backfills every universe symbol plus the benchmark
// over the full ranking window ending at asOf. The window starts two
// weeks before the oldest anchor so store-side backtracking always
// finds a session.
func (c *Collector) BackfillUniverse(ctx context.Context, asOf time.Time, cfg Config) ([]FetchResult, error) {
	symbols, err := c.universeSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Benchmark != "" {
		symbols = append(symbols, cfg.Benchmark)
	}

	anchors := contracts.AnchorsFor(asOf)
	from := anchors.YearPlusMonthAgo.AddDate(0, 0, -14)
	return c.Backfill(ctx, symbols, from, anchors.Yesterday, cfg)
}

// backfillWorker drains the symbol channel, fetching and storing one
// symbol's series at a time
func (c *Collector) backfillWorker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- FetchResult, from, to time.Time) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Symbol: symbol, Error: ctx.Err()}
			return
		default:
		}

		start := time.Now()
		bars, err := c.bars.RangeDaily(ctx, symbol, from, to)
		c.metrics.ObserveFetch("polygon", time.Since(start), err)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to fetch series")
			resultCh <- FetchResult{Symbol: symbol, Error: err}
			continue
		}

		valid := make([]contracts.PriceBar, 0, len(bars))
		for _, b := range bars {
			if b.Validate() == nil {
				valid = append(valid, b)
			}
		}

		written, err := c.prices.SaveBatch(ctx, valid)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Error("Failed to save series")
			resultCh <- FetchResult{Symbol: symbol, BarCount: len(valid), Error: err}
			continue
		}
		c.metrics.AddRows("daily_prices", written)

		c.logger.WithFields(map[string]interface{}{
			"worker":  workerID,
			"symbol":  symbol,
			"fetched": len(bars),
			"kept":    len(valid),
			"written": written,
		}).Debug("Backfilled series")

		resultCh <- FetchResult{Symbol: symbol, BarCount: len(valid)}
	}
}
