package s2_signals

import (
	"context"
	"fmt"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// maxAnchorBacktrack caps store-side anchor resolution at seven
// business days; a requested date further than that from stored data
// fails the cycle instead of scoring against a stale session
const maxAnchorBacktrack = 7

// ResolvedAnchors carries the anchor dates after trading-day
// resolution against the price store. Every close lookup in a cycle
// uses these, never the raw calendar dates.
type ResolvedAnchors struct {
	Yesterday        time.Time
	WeekAgo          time.Time
	OneMonthAgo      time.Time
	OneYearAgo       time.Time
	YearPlusMonthAgo time.Time
}

// Dates returns the five resolved sessions, newest first
func (r ResolvedAnchors) Dates() []time.Time {
	return []time.Time{r.Yesterday, r.WeekAgo, r.OneMonthAgo, r.OneYearAgo, r.YearPlusMonthAgo}
}

// Builder assembles per-symbol momentum returns for a ranking cycle
// ⭐ SSOT: snapshot score assembly happens here only
type Builder struct {
	universe contracts.UniverseRepository
	prices   contracts.PriceRepository
	logger   *logger.Logger
}

// NewBuilder creates a new snapshot builder
func NewBuilder(universe contracts.UniverseRepository, prices contracts.PriceRepository, log *logger.Logger) *Builder {
	return &Builder{
		universe: universe,
		prices:   prices,
		logger:   log.WithComponent("signals"),
	}
}

// Resolve maps each calendar anchor to the nearest prior session with
// stored closes
func (b *Builder) Resolve(ctx context.Context, anchors contracts.AnchorDates) (ResolvedAnchors, error) {
	var res ResolvedAnchors
	var err error

	if res.Yesterday, err = b.resolveOne(ctx, "yesterday", anchors.Yesterday); err != nil {
		return res, err
	}
	if res.WeekAgo, err = b.resolveOne(ctx, "week_ago", anchors.WeekAgo); err != nil {
		return res, err
	}
	if res.OneMonthAgo, err = b.resolveOne(ctx, "one_month_ago", anchors.OneMonthAgo); err != nil {
		return res, err
	}
	if res.OneYearAgo, err = b.resolveOne(ctx, "one_year_ago", anchors.OneYearAgo); err != nil {
		return res, err
	}
	if res.YearPlusMonthAgo, err = b.resolveOne(ctx, "year_plus_month_ago", anchors.YearPlusMonthAgo); err != nil {
		return res, err
	}

	return res, nil
}

func (b *Builder) resolveOne(ctx context.Context, label string, target time.Time) (time.Time, error) {
	resolved, err := b.prices.ResolveTradingDate(ctx, target, maxAnchorBacktrack)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve %s anchor %s: %w", label, contracts.FormatDate(target), err)
	}

	if !contracts.SameDate(resolved, target) {
		b.logger.WithFields(map[string]interface{}{
			"anchor":    label,
			"requested": contracts.FormatDate(target),
			"resolved":  contracts.FormatDate(resolved),
		}).Debug("Anchor backtracked to available session")
	}

	return resolved, nil
}

// Build fetches cohort closes at the resolved anchors and derives the
// returns for every member. Rows that could not resolve an anchor
// carry NaN in the affected returns; the ranker decides what survives.
func (b *Builder) Build(ctx context.Context, cohort contracts.Cohort, asOf time.Time, res ResolvedAnchors) ([]contracts.MomentumRow, error) {
	u, err := b.universe.GetCohort(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("load cohort %s: %w", cohort, err)
	}
	if u.Count() == 0 {
		return nil, fmt.Errorf("cohort %s is empty; run a universe sync first", cohort)
	}

	symbols := u.Symbols()
	closes, err := b.fetchCloses(ctx, symbols, res)
	if err != nil {
		return nil, err
	}

	rows := make([]contracts.MomentumRow, 0, len(symbols))
	complete := 0
	for _, m := range u.Members {
		ret := Snapshot(AnchorCloses{
			Yesterday:        closes.yesterday[m.Symbol],
			WeekAgo:          closes.weekAgo[m.Symbol],
			OneMonthAgo:      closes.oneMonthAgo[m.Symbol],
			OneYearAgo:       closes.oneYearAgo[m.Symbol],
			YearPlusMonthAgo: closes.yearPlusMonthAgo[m.Symbol],
		})
		if ret.Complete() {
			complete++
		}

		rows = append(rows, contracts.MomentumRow{
			Cohort:          cohort,
			Symbol:          m.Symbol,
			Name:            m.Name,
			AsOf:            contracts.DateOnly(asOf),
			Price:           closes.yesterday[m.Symbol],
			CurrentReturn:   ret.Current,
			LastWeekReturn:  ret.LastWeek,
			LastMonthReturn: ret.LastMonth,
		})
	}

	b.logger.WithFields(map[string]interface{}{
		"cohort":   cohort.String(),
		"members":  len(rows),
		"complete": complete,
		"partial":  len(rows) - complete,
	}).Info("Snapshot returns assembled")

	return rows, nil
}

type anchorCloseMaps struct {
	yesterday        map[string]float64
	weekAgo          map[string]float64
	oneMonthAgo      map[string]float64
	oneYearAgo       map[string]float64
	yearPlusMonthAgo map[string]float64
}

func (b *Builder) fetchCloses(ctx context.Context, symbols []string, res ResolvedAnchors) (anchorCloseMaps, error) {
	var out anchorCloseMaps
	var err error

	if out.yesterday, err = b.prices.GetCloses(ctx, symbols, res.Yesterday); err != nil {
		return out, fmt.Errorf("closes at %s: %w", contracts.FormatDate(res.Yesterday), err)
	}
	if out.weekAgo, err = b.prices.GetCloses(ctx, symbols, res.WeekAgo); err != nil {
		return out, fmt.Errorf("closes at %s: %w", contracts.FormatDate(res.WeekAgo), err)
	}
	if out.oneMonthAgo, err = b.prices.GetCloses(ctx, symbols, res.OneMonthAgo); err != nil {
		return out, fmt.Errorf("closes at %s: %w", contracts.FormatDate(res.OneMonthAgo), err)
	}
	if out.oneYearAgo, err = b.prices.GetCloses(ctx, symbols, res.OneYearAgo); err != nil {
		return out, fmt.Errorf("closes at %s: %w", contracts.FormatDate(res.OneYearAgo), err)
	}
	if out.yearPlusMonthAgo, err = b.prices.GetCloses(ctx, symbols, res.YearPlusMonthAgo); err != nil {
		return out, fmt.Errorf("closes at %s: %w", contracts.FormatDate(res.YearPlusMonthAgo), err)
	}

	return out, nil
}
