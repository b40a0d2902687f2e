package commands

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/external/polygon"
	"github.com/mhan/momo/internal/external/ssga"
	"github.com/mhan/momo/internal/external/wikipedia"
	"github.com/mhan/momo/internal/pipeline"
	"github.com/mhan/momo/internal/report"
	"github.com/mhan/momo/internal/s0_data"
	"github.com/mhan/momo/internal/s0_data/collector"
	"github.com/mhan/momo/internal/s0_data/quality"
	"github.com/mhan/momo/internal/s1_universe"
	"github.com/mhan/momo/internal/s2_signals"
	"github.com/mhan/momo/internal/screenconfig"
	"github.com/mhan/momo/internal/selection"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/database"
	"github.com/mhan/momo/pkg/httputil"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
	"github.com/mhan/momo/pkg/redis"
)

// app holds the assembled service graph shared by the pipeline-facing
// commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	screen  *screenconfig.Config

	universeRepo *s1_universe.Repository
	priceRepo    *s0_data.PriceRepository
	companyRepo  *s0_data.CompanyRepository
	scoreRepo    *selection.Repository

	gate         *quality.Gate
	orchestrator *pipeline.Orchestrator
}

// Close releases the app's connections
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// initApp wires the full pipeline graph
// ⭐ SSOT: pipeline composition happens here only
func initApp() (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load screen parameters
	screen, _, err := screenconfig.LoadOrDefault(cfg.ScreenConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load screen config: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis (a disabled client when REDIS_ENABLED is off)
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 6. Create metrics registry
	m := metrics.New()

	// 7. Create HTTP clients. Polygon gets the free-tier token bucket
	// and, when Redis is on, the cross-process sliding window on top.
	polygonHTTP := httputil.New(cfg, log).
		WithLimiter(rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Polygon.RatePerMin)), 1))
	if redisClient.Enabled() {
		polygonHTTP = polygonHTTP.WithRateLimiter(redis.NewRateLimiter(redisClient, "momo"), redis.PolygonRateLimit)
	}
	holdingsHTTP := httputil.New(cfg, log)

	// 8. Create external API clients
	polygonClient := polygon.NewClient(cfg, polygonHTTP, log)
	ssgaClient := ssga.NewClient(cfg, holdingsHTTP, log)
	wikipediaClient := wikipedia.NewClient(cfg, holdingsHTTP, log)

	// 9. Create repositories
	universeRepo := s1_universe.NewRepository(db.Pool)
	priceRepo := s0_data.NewPriceRepository(db.Pool)
	companyRepo := s0_data.NewCompanyRepository(db.Pool)
	scoreRepo := selection.NewRepository(db.Pool)

	// 10. Create pipeline stages
	syncer := s1_universe.NewSyncer(ssgaClient, wikipediaClient, universeRepo, m, log, s1_universe.Config{
		MegacapSize: screen.Universe.MegacapSize,
	})
	col := collector.NewCollector(polygonClient, priceRepo, universeRepo, m, log)
	gate := quality.NewGate(universeRepo, priceRepo, quality.Config{
		MinPriceCoverage: screen.Quality.MinPriceCoverage,
	})
	signals := s2_signals.NewBuilder(universeRepo, priceRepo, log)
	ranker := selection.NewRanker(log)
	screener := selection.NewScreener(selection.Config{TopN: screen.Screening.TopN}, log)

	// 11. Create report chain
	builder := report.NewBuilder(scoreRepo, priceRepo, universeRepo, companyRepo, log, report.Config{
		Benchmark: screen.Prices.Benchmark,
	})
	renderer := report.NewRenderer(log)
	site := report.NewSite(cfg.Report.SiteDir, cfg.Report.ReportDir, log)
	mailer := report.NewMailer(cfg.SMTP, log)
	cacher := report.NewCacher(companyRepo, polygonClient, m, log, report.CacheConfig{
		MetaTTL:      screen.Report.MetadataTTL(),
		NewsFreshAge: screen.Report.NewsFreshAge(),
		NewsLimit:    screen.Report.NewsLimit,
	})
	reports := report.NewService(builder, renderer, site, mailer, cfg.Report.ReportDir, log)

	// 12. Create orchestrator
	orchestrator := pipeline.New(
		syncer,
		col,
		gate,
		signals,
		ranker,
		screener,
		scoreRepo,
		priceRepo,
		companyRepo,
		cacher,
		reports,
		m,
		log,
		screen,
	)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		metrics:      m,
		screen:       screen,
		universeRepo: universeRepo,
		priceRepo:    priceRepo,
		companyRepo:  companyRepo,
		scoreRepo:    scoreRepo,
		gate:         gate,
		orchestrator: orchestrator,
	}, nil
}

// resolveDate parses a --date flag, defaulting to now when empty
func resolveDate(flag string) (time.Time, error) {
	if flag == "" {
		return time.Now(), nil
	}
	parsed, err := contracts.ParseDate(flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", flag)
	}
	return parsed, nil
}
