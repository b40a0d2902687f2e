package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/mhan/momo/internal/contracts"
)

// Gate validates stored price coverage before a cohort is scored
type Gate struct {
	universe contracts.UniverseRepository
	prices   contracts.PriceRepository
	config   Config
}

// Config holds coverage thresholds
type Config struct {
	// MinPriceCoverage is the fraction of a cohort that must have a
	// stored close on the check date
	MinPriceCoverage float64 `yaml:"min_price_coverage"`
}

// DefaultConfig matches the populated threshold used by the sync path
func DefaultConfig() Config {
	return Config{MinPriceCoverage: contracts.MinPriceCoverage}
}

// NewGate creates a new coverage gate
func NewGate(universe contracts.UniverseRepository, prices contracts.PriceRepository, config Config) *Gate {
	return &Gate{
		universe: universe,
		prices:   prices,
		config:   config,
	}
}

// Check measures one cohort's close coverage on a date
// ⭐ SSOT: coverage validation before scoring happens here only
func (g *Gate) Check(ctx context.Context, cohort contracts.Cohort, date time.Time) (*contracts.CoverageSnapshot, error) {
	u, err := g.universe.GetCohort(ctx, cohort)
	if err != nil {
		return nil, fmt.Errorf("load %s cohort: %w", cohort, err)
	}
	if u.Count() == 0 {
		return nil, fmt.Errorf("cohort %s has no members", cohort)
	}

	populated, err := g.prices.CountOnDate(ctx, u.Symbols(), contracts.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("count closes: %w", err)
	}

	coverage := float64(populated) / float64(u.Count())
	return &contracts.CoverageSnapshot{
		Date:      contracts.DateOnly(date),
		Cohort:    cohort,
		Expected:  u.Count(),
		Populated: populated,
		Coverage:  coverage,
		Passed:    coverage > g.config.MinPriceCoverage,
	}, nil
}

// CheckAll measures coverage for every cohort on a date
func (g *Gate) CheckAll(ctx context.Context, date time.Time) ([]contracts.CoverageSnapshot, error) {
	snapshots := make([]contracts.CoverageSnapshot, 0, len(contracts.AllCohorts()))
	for _, cohort := range contracts.AllCohorts() {
		snap, err := g.Check(ctx, cohort, date)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, nil
}
