package screenconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError is a hard constraint violation (run aborts)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-constraint violation (logged only)
type Warning struct {
	Code    string
	Message string
}

// cronParser matches the scheduler's clock: six fields with seconds,
// descriptors allowed
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ScreenID == "" {
		return ValidationError{"meta.screen_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", fmt.Sprintf("unknown timezone %q", cfg.Meta.Timezone)}
		}
	}

	// === Universe ===
	if cfg.Universe.MegacapSize <= 0 {
		return ValidationError{"universe.megacap_size", "must be > 0"}
	}

	// === Prices ===
	if cfg.Prices.Benchmark == "" {
		return ValidationError{"prices.benchmark", "required"}
	}
	if cfg.Prices.Workers < 1 {
		return ValidationError{"prices.workers", "must be >= 1"}
	}
	if cfg.Prices.MaxBackWeekdays < 1 {
		return ValidationError{"prices.max_back_weekdays", "must be >= 1"}
	}

	// === Momentum ===
	// window+1 observations are required to score, so a window below
	// 2 cannot express a trailing return
	if cfg.Momentum.WindowSessions < 2 {
		return ValidationError{"momentum.window_sessions", "must be >= 2"}
	}

	// === Screening ===
	if cfg.Screening.TopN < 1 {
		return ValidationError{"screening.top_n", "must be >= 1"}
	}

	// === Quality ===
	if cfg.Quality.MinPriceCoverage <= 0 || cfg.Quality.MinPriceCoverage > 1 {
		return ValidationError{"quality.min_price_coverage", "must be in (0, 1]"}
	}

	// === Report ===
	if cfg.Report.MetadataTTLDays <= 0 {
		return ValidationError{"report.metadata_ttl_days", "must be > 0"}
	}
	if cfg.Report.NewsFreshDays <= 0 {
		return ValidationError{"report.news_fresh_days", "must be > 0"}
	}
	if cfg.Report.NewsLimit <= 0 {
		return ValidationError{"report.news_limit", "must be > 0"}
	}

	// === Maintenance ===
	if cfg.Maintenance.NewsRetentionDays <= 0 {
		return ValidationError{"maintenance.news_retention_days", "must be > 0"}
	}
	if cfg.Maintenance.NewsRetentionDays < cfg.Report.NewsFreshDays {
		return ValidationError{"maintenance.news_retention_days", "must be >= report.news_fresh_days"}
	}

	// === Schedules ===
	if err := validateCronSpec(cfg.Schedules.WeeklyReport); err != nil {
		return ValidationError{"schedules.weekly_report", err.Error()}
	}
	if err := validateCronSpec(cfg.Schedules.DailyBars); err != nil {
		return ValidationError{"schedules.daily_bars", err.Error()}
	}
	if err := validateCronSpec(cfg.Schedules.UniverseSync); err != nil {
		return ValidationError{"schedules.universe_sync", err.Error()}
	}
	if err := validateCronSpec(cfg.Schedules.Maintenance); err != nil {
		return ValidationError{"schedules.maintenance", err.Error()}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// More than ~8 workers just queue behind the free-tier limiter
	if cfg.Prices.Workers > 8 {
		warnings = append(warnings, Warning{
			Code:    "EXCESS_WORKERS",
			Message: fmt.Sprintf("workers=%d: the 5/min rate limit leaves most workers idle", cfg.Prices.Workers),
		})
	}

	// A lax gate lets holiday gaps through to the ranking
	if cfg.Quality.MinPriceCoverage < 0.5 {
		warnings = append(warnings, Warning{
			Code:    "LAX_COVERAGE_GATE",
			Message: fmt.Sprintf("min_price_coverage=%.2f: partial sessions would pass the gate", cfg.Quality.MinPriceCoverage),
		})
	}

	// Oversized pick lists defeat the point of screening
	if cfg.Screening.TopN > cfg.Universe.MegacapSize {
		warnings = append(warnings, Warning{
			Code:    "TOPN_EXCEEDS_COHORT",
			Message: fmt.Sprintf("top_n=%d exceeds megacap_size=%d: the smallest cohort cannot fill the list", cfg.Screening.TopN, cfg.Universe.MegacapSize),
		})
	}

	return warnings
}

func validateCronSpec(spec string) error {
	if spec == "" {
		return errors.New("required")
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return err
	}
	return nil
}
