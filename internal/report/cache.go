package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/external/polygon"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
)

// CacheConfig holds freshness rules for the company cache
type CacheConfig struct {
	// MetaTTL is how long cached name/description rows stay valid
	MetaTTL time.Duration `yaml:"meta_ttl"`

	// NewsFreshAge skips the news fetch when a stored story is
	// younger than this
	NewsFreshAge time.Duration `yaml:"news_fresh_age"`

	// NewsLimit caps stories fetched per symbol
	NewsLimit int `yaml:"news_limit"`
}

// DefaultCacheConfig matches the weekly report cadence: metadata
// refreshes roughly monthly, news roughly weekly
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MetaTTL:      25 * 24 * time.Hour,
		NewsFreshAge: 5 * 24 * time.Hour,
		NewsLimit:    5,
	}
}

// Cacher keeps company metadata and news warm ahead of rendering
// ⭐ SSOT: reference-data caching lives here only
type Cacher struct {
	companies contracts.CompanyRepository
	source    contracts.CompanySource
	metrics   *metrics.Metrics
	logger    *logger.Logger
	config    CacheConfig
}

// NewCacher creates a new Cacher instance
func NewCacher(
	companies contracts.CompanyRepository,
	source contracts.CompanySource,
	m *metrics.Metrics,
	log *logger.Logger,
	config CacheConfig,
) *Cacher {
	if config.MetaTTL <= 0 {
		config.MetaTTL = DefaultCacheConfig().MetaTTL
	}
	if config.NewsFreshAge <= 0 {
		config.NewsFreshAge = DefaultCacheConfig().NewsFreshAge
	}
	if config.NewsLimit <= 0 {
		config.NewsLimit = DefaultCacheConfig().NewsLimit
	}
	return &Cacher{
		companies: companies,
		source:    source,
		metrics:   m,
		logger:    log.WithComponent("company_cache"),
		config:    config,
	}
}

// CacheCompanyData makes sure metadata and recent stories are stored
// for every symbol. Fresh rows are left alone so re-runs stay cheap on
// the rate-limited reference API.
func (c *Cacher) CacheCompanyData(ctx context.Context, symbols []string) error {
	uniq := normalizeSymbols(symbols)
	now := time.Now().UTC()

	metaFetched, newsFetched := 0, 0
	for _, symbol := range uniq {
		refreshed, err := c.cacheMeta(ctx, symbol, now)
		if err != nil {
			return fmt.Errorf("cache metadata for %s: %w", symbol, err)
		}
		if refreshed {
			metaFetched++
		}

		refreshed, err = c.cacheNews(ctx, symbol, now)
		if err != nil {
			return fmt.Errorf("cache news for %s: %w", symbol, err)
		}
		if refreshed {
			newsFetched++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols":      len(uniq),
		"meta_fetched": metaFetched,
		"news_fetched": newsFetched,
	}).Info("Company cache refreshed")

	return nil
}

// cacheMeta refreshes one symbol's metadata when the stored row is
// missing or older than the TTL
func (c *Cacher) cacheMeta(ctx context.Context, symbol string, now time.Time) (bool, error) {
	stored, err := c.companies.GetMeta(ctx, symbol)
	if err != nil {
		return false, err
	}
	if stored != nil && !stored.Stale(c.config.MetaTTL, now) {
		return false, nil
	}

	start := time.Now()
	meta, err := c.source.TickerDetails(ctx, symbol)
	c.metrics.ObserveFetch("polygon", time.Since(start), err)
	if err != nil {
		// Delisted symbols have no reference row. Stamp an empty one
		// so the TTL stops every later run from asking again.
		if errors.Is(err, polygon.ErrNoResults) {
			c.logger.WithField("symbol", symbol).Warn("No reference metadata, stamping empty row")
			meta = &contracts.CompanyMeta{Symbol: symbol, UpdatedAt: now}
		} else {
			return false, err
		}
	}

	if err := c.companies.UpsertMeta(ctx, meta); err != nil {
		return false, err
	}
	return true, nil
}

// cacheNews refreshes one symbol's stories unless a stored story is
// still inside the fresh window
func (c *Cacher) cacheNews(ctx context.Context, symbol string, now time.Time) (bool, error) {
	newest, err := c.companies.LatestNewsTime(ctx, symbol)
	if err != nil {
		return false, err
	}
	if !newest.IsZero() && now.Sub(newest) < c.config.NewsFreshAge {
		return false, nil
	}

	start := time.Now()
	items, err := c.source.RecentNews(ctx, symbol, c.config.NewsLimit)
	c.metrics.ObserveFetch("polygon", time.Since(start), err)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		c.logger.WithField("symbol", symbol).Debug("No stories published")
		return true, nil
	}

	written, err := c.companies.SaveNews(ctx, items)
	if err != nil {
		return false, err
	}
	c.metrics.AddRows("company_news", written)
	return true, nil
}

// normalizeSymbols upper-cases, de-duplicates and sorts the input
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
