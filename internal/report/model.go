package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

const (
	// maxPriceBacktrack bounds per-symbol close resolution for the
	// benchmark and dropped-ticker lines
	maxPriceBacktrack = 7

	// megacapSplit is where the megacap summary breaks into its two
	// weight-sorted groups
	megacapSplit = 5

	// cardHeadlines caps stories shown per card
	cardHeadlines = 5
)

// Config holds report composition knobs
type Config struct {
	// Benchmark is the index ETF whose standing heads each summary
	Benchmark string `yaml:"benchmark"`
}

// DefaultConfig tracks the S&P 500 ETF
func DefaultConfig() Config {
	return Config{Benchmark: "VOO"}
}

// Model is the fully resolved report, ready for rendering
type Model struct {
	RunDate  time.Time
	Sections []Section
}

// HumanDate formats the run date the way the page header shows it
func (m Model) HumanDate() string {
	return m.RunDate.Format("January 02, 2006")
}

// Section is one cohort block of the report
type Section struct {
	Cohort     contracts.Cohort
	Label      string // anchor prefix: MEGA, SPY, MDY
	Title      string
	CardsTitle string
	Benchmark  Benchmark
	Lines      []SummaryLine
	Cards      []Card
}

// SummaryID anchors the cohort summary block for card back-links
func (s Section) SummaryID() string {
	return "summary-" + s.Label
}

// Benchmark is the index ETF standing shown above a summary list.
// Unavailable when any of its three closes could not be resolved.
type Benchmark struct {
	Symbol    string
	Available bool
	Price     float64
	Return12M float64
	Return1W  float64
}

// LineKind classifies a summary line
type LineKind string

const (
	LineAdded      LineKind = "added"
	LineContinuing LineKind = "continuing"
	LineDropped    LineKind = "dropped"
	LineSpacer     LineKind = "spacer"
)

// SummaryLine is one row of a cohort summary list
type SummaryLine struct {
	Kind      LineKind
	Symbol    string
	AnchorID  string // empty for dropped symbols, which have no card
	Price     float64
	Return12M float64
	Return1W  float64
	Darker    bool
}

// Card is one pick's detail block
type Card struct {
	AnchorID    string
	SummaryID   string
	Label       string
	Symbol      string
	Name        string
	Price       float64
	Current     float64
	LastMonth   float64
	LastWeek    float64
	RankChange  int
	Darker      bool
	Description string
	Headlines   []contracts.NewsItem
}

// cohortPresentation fixes each cohort's headings and anchor prefix
type cohortPresentation struct {
	label      string
	title      string
	cardsTitle string
}

func presentation(c contracts.Cohort) cohortPresentation {
	switch c {
	case contracts.CohortMegacap:
		return cohortPresentation{
			label:      "MEGA",
			title:      "Megacap Stocks - Top 25 stocks by Market Cap in the SP500",
			cardsTitle: "— MegaCap Stocks —",
		}
	case contracts.CohortSP500:
		return cohortPresentation{
			label:      "SPY",
			title:      "S&P 500 - Large Cap Stocks",
			cardsTitle: "— S&P 500 —",
		}
	case contracts.CohortSP400:
		return cohortPresentation{
			label:      "MDY",
			title:      "S&P 400 - MidCap Stocks",
			cardsTitle: "— S&P 400 —",
		}
	default:
		return cohortPresentation{label: c.String(), title: c.String(), cardsTitle: c.String()}
	}
}

// Builder assembles the report model from stored scores, prices and
// the company cache
// ⭐ SSOT: report composition lives here only
type Builder struct {
	scores    contracts.ScoreRepository
	prices    contracts.PriceRepository
	universe  contracts.UniverseRepository
	companies contracts.CompanyRepository
	logger    *logger.Logger
	config    Config
}

// NewBuilder creates a new Builder instance
func NewBuilder(
	scores contracts.ScoreRepository,
	prices contracts.PriceRepository,
	universe contracts.UniverseRepository,
	companies contracts.CompanyRepository,
	log *logger.Logger,
	config Config,
) *Builder {
	if config.Benchmark == "" {
		config.Benchmark = DefaultConfig().Benchmark
	}
	return &Builder{
		scores:    scores,
		prices:    prices,
		universe:  universe,
		companies: companies,
		logger:    log.WithComponent("report"),
		config:    config,
	}
}

// Build resolves the full model for one run date
func (b *Builder) Build(ctx context.Context, runDate time.Time) (*Model, error) {
	day := contracts.DateOnly(runDate)

	model := &Model{RunDate: day}
	for _, cohort := range contracts.AllCohorts() {
		section, err := b.buildSection(ctx, cohort, day)
		if err != nil {
			return nil, fmt.Errorf("build %s section: %w", cohort, err)
		}
		model.Sections = append(model.Sections, section)
	}
	return model, nil
}

func (b *Builder) buildSection(ctx context.Context, cohort contracts.Cohort, day time.Time) (Section, error) {
	p := presentation(cohort)
	section := Section{Cohort: cohort, Label: p.label, Title: p.title, CardsTitle: p.cardsTitle}

	picks, err := b.scores.GetPicks(ctx, cohort, day)
	if err != nil {
		return Section{}, fmt.Errorf("load picks: %w", err)
	}
	if len(picks) == 0 {
		return Section{}, fmt.Errorf("no picks stored for %s on %s", cohort, contracts.FormatDate(day))
	}

	// The megacap summary reads better heaviest-first inside each of
	// its two pick groups
	if cohort == contracts.CohortMegacap {
		picks = b.orderByWeight(ctx, picks)
	}

	prevSet, err := b.priorPicks(ctx, cohort, day)
	if err != nil {
		return Section{}, err
	}

	bench, err := b.benchmark(ctx, day)
	if err != nil {
		return Section{}, err
	}
	section.Benchmark = bench

	section.Lines = memberLines(picks, prevSet, bench, p.label, cohort)

	droppedLines, err := b.droppedLines(ctx, day, picks, prevSet)
	if err != nil {
		return Section{}, err
	}
	section.Lines = append(section.Lines, droppedLines...)

	section.Cards, err = b.cards(ctx, picks, bench, p.label, section.SummaryID())
	if err != nil {
		return Section{}, err
	}

	added := 0
	for _, line := range section.Lines {
		if line.Kind == LineAdded {
			added++
		}
	}
	b.logger.WithFields(map[string]interface{}{
		"cohort":  cohort.String(),
		"picks":   len(picks),
		"added":   added,
		"dropped": len(droppedLines),
	}).Info("Section composed")

	return section, nil
}

// priorPicks returns the symbols picked in the most recent run before
// day. Empty on a first run, which makes every current pick an
// addition.
func (b *Builder) priorPicks(ctx context.Context, cohort contracts.Cohort, day time.Time) (map[string]bool, error) {
	prior, err := b.scores.PriorAsOf(ctx, cohort, day)
	if err != nil {
		return nil, fmt.Errorf("resolve prior run: %w", err)
	}
	if prior.IsZero() {
		return map[string]bool{}, nil
	}

	rows, err := b.scores.GetPicks(ctx, cohort, prior)
	if err != nil {
		return nil, fmt.Errorf("load prior picks: %w", err)
	}
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[strings.ToUpper(r.Symbol)] = true
	}
	return set, nil
}

// benchmark resolves the index ETF close at the run date, one week
// back and one calendar year back
func (b *Builder) benchmark(ctx context.Context, day time.Time) (Benchmark, error) {
	bench := Benchmark{Symbol: b.config.Benchmark}

	targets := []time.Time{
		day,
		day.AddDate(0, 0, -7),
		contracts.AddYearsClamped(day, -1),
	}
	closes := make([]float64, len(targets))
	for i, target := range targets {
		bar, err := b.prices.CloseOnOrBefore(ctx, bench.Symbol, target, maxPriceBacktrack)
		if errors.Is(err, contracts.ErrNoTradingData) {
			b.logger.WithField("target", contracts.FormatDate(target)).Warn("Benchmark close missing")
			return bench, nil
		}
		if err != nil {
			return Benchmark{}, fmt.Errorf("resolve %s close near %s: %w",
				bench.Symbol, contracts.FormatDate(target), err)
		}
		closes[i] = bar.Close
	}

	bench.Available = true
	bench.Price = closes[0]
	bench.Return1W = ratioReturn(closes[0], closes[1])
	bench.Return12M = ratioReturn(closes[0], closes[2])
	return bench, nil
}

// memberLines renders current picks in pick order, flagging additions
// versus the prior run. The megacap list gets a spacer between its two
// weight groups.
func memberLines(picks []contracts.MomentumRow, prevSet map[string]bool, bench Benchmark, label string, cohort contracts.Cohort) []SummaryLine {
	lines := make([]SummaryLine, 0, len(picks)+1)
	for i, row := range picks {
		sym := strings.ToUpper(row.Symbol)
		kind := LineContinuing
		if !prevSet[sym] {
			kind = LineAdded
		}
		lines = append(lines, SummaryLine{
			Kind:      kind,
			Symbol:    sym,
			AnchorID:  label + "-" + sym,
			Price:     row.Price,
			Return12M: row.CurrentReturn,
			Return1W:  row.LastWeekReturn,
			Darker:    darkerThan(row.LastWeekReturn, bench),
		})
		if cohort == contracts.CohortMegacap && i == megacapSplit-1 {
			lines = append(lines, SummaryLine{Kind: LineSpacer})
		}
	}
	return lines
}

// droppedLines computes fresh standing for symbols that left the
// list, straight from stored closes since they no longer carry scores
func (b *Builder) droppedLines(ctx context.Context, day time.Time, picks []contracts.MomentumRow, prevSet map[string]bool) ([]SummaryLine, error) {
	current := make(map[string]bool, len(picks))
	for _, r := range picks {
		current[strings.ToUpper(r.Symbol)] = true
	}

	var dropped []string
	for sym := range prevSet {
		if !current[sym] {
			dropped = append(dropped, sym)
		}
	}
	sort.Strings(dropped)

	lines := make([]SummaryLine, 0, len(dropped))
	for _, sym := range dropped {
		now, err := b.closeNear(ctx, sym, day.AddDate(0, 0, -1))
		if err != nil {
			return nil, err
		}
		week, err := b.closeNear(ctx, sym, day.AddDate(0, 0, -7))
		if err != nil {
			return nil, err
		}
		year, err := b.closeNear(ctx, sym, contracts.AddYearsClamped(day, -1))
		if err != nil {
			return nil, err
		}

		lines = append(lines, SummaryLine{
			Kind:      LineDropped,
			Symbol:    sym,
			Price:     now,
			Return12M: ratioReturn(now, year),
			Return1W:  ratioReturn(now, week),
		})
	}
	return lines, nil
}

// cards builds one detail block per pick, enriched from the company
// cache
func (b *Builder) cards(ctx context.Context, picks []contracts.MomentumRow, bench Benchmark, label, summaryID string) ([]Card, error) {
	cards := make([]Card, 0, len(picks))
	for _, row := range picks {
		sym := strings.ToUpper(row.Symbol)

		name, description := row.Name, ""
		meta, err := b.companies.GetMeta(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("load %s metadata: %w", sym, err)
		}
		if meta != nil {
			if meta.Name != "" {
				name = meta.Name
			}
			description = meta.Description
		}

		headlines, err := b.companies.GetNews(ctx, sym, cardHeadlines)
		if err != nil {
			return nil, fmt.Errorf("load %s news: %w", sym, err)
		}

		cards = append(cards, Card{
			AnchorID:    label + "-" + sym,
			SummaryID:   summaryID,
			Label:       label,
			Symbol:      sym,
			Name:        name,
			Price:       row.Price,
			Current:     row.CurrentReturn,
			LastMonth:   row.LastMonthReturn,
			LastWeek:    row.LastWeekReturn,
			RankChange:  row.RankChange,
			Darker:      darkerThan(row.LastWeekReturn, bench),
			Description: description,
			Headlines:   headlines,
		})
	}
	return cards, nil
}

// orderByWeight reorders megacap picks inside their top and bottom
// groups by index weight, heaviest first. Pick order decides the
// groups; weight decides display order inside each.
func (b *Builder) orderByWeight(ctx context.Context, picks []contracts.MomentumRow) []contracts.MomentumRow {
	u, err := b.universe.GetCohort(ctx, contracts.CohortMegacap)
	if err != nil {
		b.logger.WithError(err).Warn("Megacap weights unavailable, keeping pick order")
		return picks
	}
	weights := make(map[string]float64, u.Count())
	for _, m := range u.Members {
		weights[strings.ToUpper(m.Symbol)] = m.Weight
	}

	ordered := make([]contracts.MomentumRow, len(picks))
	copy(ordered, picks)

	split := megacapSplit
	if split > len(ordered) {
		split = len(ordered)
	}
	sortByWeight(ordered[:split], weights)
	sortByWeight(ordered[split:], weights)
	return ordered
}

func sortByWeight(rows []contracts.MomentumRow, weights map[string]float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		wi := weights[strings.ToUpper(rows[i].Symbol)]
		wj := weights[strings.ToUpper(rows[j].Symbol)]
		if wi != wj {
			return wi > wj
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}

// closeNear backtracks one close, NaN when the window holds nothing
func (b *Builder) closeNear(ctx context.Context, symbol string, target time.Time) (float64, error) {
	bar, err := b.prices.CloseOnOrBefore(ctx, symbol, target, maxPriceBacktrack)
	if errors.Is(err, contracts.ErrNoTradingData) {
		return math.NaN(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve %s close near %s: %w", symbol, contracts.FormatDate(target), err)
	}
	return bar.Close, nil
}

// darkerThan flags a weekly return that beat the benchmark's week
func darkerThan(ret float64, bench Benchmark) bool {
	return bench.Available && !math.IsNaN(ret) && !math.IsNaN(bench.Return1W) && ret > bench.Return1W
}

// ratioReturn is now/then - 1, NaN when either close is unusable
func ratioReturn(now, then float64) float64 {
	if now <= 0 || then <= 0 {
		return math.NaN()
	}
	return now/then - 1
}
