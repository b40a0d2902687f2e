package screenconfig

import (
	"time"

	"github.com/mhan/momo/internal/contracts"
)

// Config is the full screen parameter set, loaded from one YAML file.
// ⭐ SSOT: every tunable of the weekly screen lives here only
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Universe    Universe    `yaml:"universe" json:"universe"`
	Prices      Prices      `yaml:"prices" json:"prices"`
	Momentum    Momentum    `yaml:"momentum" json:"momentum"`
	Screening   Screening   `yaml:"screening" json:"screening"`
	Quality     Quality     `yaml:"quality" json:"quality"`
	Report      Report      `yaml:"report" json:"report"`
	Maintenance Maintenance `yaml:"maintenance" json:"maintenance"`
	Schedules   Schedules   `yaml:"schedules" json:"schedules"`
}

// Meta identifies the screen
type Meta struct {
	ScreenID string `yaml:"screen_id" json:"screen_id"`
	Version  string `yaml:"version" json:"version"`
	// Timezone drives the scheduler clock. Market data dates stay
	// calendar dates regardless.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Location resolves the configured timezone
func (m Meta) Location() (*time.Location, error) {
	if m.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(m.Timezone)
}

// Universe sizes the derived cohort
type Universe struct {
	MegacapSize int `yaml:"megacap_size" json:"megacap_size"`
}

// Prices tunes the market-data collector
type Prices struct {
	// Benchmark is the index ETF fetched per ticker for report
	// comparisons
	Benchmark string `yaml:"benchmark" json:"benchmark"`
	// Workers bounds concurrent backfill fetches
	Workers int `yaml:"workers" json:"workers"`
	// MaxBackWeekdays bounds the holiday backtrack on empty sessions
	MaxBackWeekdays int `yaml:"max_back_weekdays" json:"max_back_weekdays"`
}

// Momentum sets the trailing window
type Momentum struct {
	// WindowSessions is the trailing window in trading sessions.
	// A series needs window+1 observations to score.
	WindowSessions int `yaml:"window_sessions" json:"window_sessions"`
}

// Screening caps the pick list
type Screening struct {
	TopN int `yaml:"top_n" json:"top_n"`
}

// Quality gates ranking on price coverage
type Quality struct {
	// MinPriceCoverage is the fraction of a cohort that must have a
	// stored close on every anchor date
	MinPriceCoverage float64 `yaml:"min_price_coverage" json:"min_price_coverage"`
}

// Report tunes the reference-data cache
type Report struct {
	MetadataTTLDays int `yaml:"metadata_ttl_days" json:"metadata_ttl_days"`
	NewsFreshDays   int `yaml:"news_fresh_days" json:"news_fresh_days"`
	NewsLimit       int `yaml:"news_limit" json:"news_limit"`
}

// MetadataTTL returns the metadata refetch interval
func (r Report) MetadataTTL() time.Duration {
	return time.Duration(r.MetadataTTLDays) * 24 * time.Hour
}

// NewsFreshAge returns how recent a stored story must be to skip the
// news refetch
func (r Report) NewsFreshAge() time.Duration {
	return time.Duration(r.NewsFreshDays) * 24 * time.Hour
}

// Maintenance tunes the weekly cleanup job
type Maintenance struct {
	NewsRetentionDays int `yaml:"news_retention_days" json:"news_retention_days"`
}

// NewsRetention returns the prune cutoff age
func (m Maintenance) NewsRetention() time.Duration {
	return time.Duration(m.NewsRetentionDays) * 24 * time.Hour
}

// Schedules holds the cron specs (six fields, seconds first)
type Schedules struct {
	WeeklyReport string `yaml:"weekly_report" json:"weekly_report"`
	DailyBars    string `yaml:"daily_bars" json:"daily_bars"`
	UniverseSync string `yaml:"universe_sync" json:"universe_sync"`
	Maintenance  string `yaml:"maintenance" json:"maintenance"`
}

// Default returns the standard screen: megacap/sp500/sp400 cohorts,
// 12-month window, top-10 picks, Saturday morning report
func Default() *Config {
	return &Config{
		Meta: Meta{
			ScreenID: "sp-momentum",
			Version:  "1",
			Timezone: "America/New_York",
		},
		Universe: Universe{MegacapSize: 25},
		Prices: Prices{
			Benchmark:       "VOO",
			Workers:         4,
			MaxBackWeekdays: 5,
		},
		Momentum:  Momentum{WindowSessions: 252},
		Screening: Screening{TopN: 10},
		Quality:   Quality{MinPriceCoverage: contracts.MinPriceCoverage},
		Report: Report{
			MetadataTTLDays: 25,
			NewsFreshDays:   5,
			NewsLimit:       5,
		},
		Maintenance: Maintenance{NewsRetentionDays: 120},
		Schedules: Schedules{
			WeeklyReport: "0 0 8 * * SAT",
			DailyBars:    "0 0 18 * * MON-FRI",
			UniverseSync: "0 30 7 * * FRI",
			Maintenance:  "0 0 3 * * SUN",
		},
	}
}
