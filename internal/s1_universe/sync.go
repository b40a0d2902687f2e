package s1_universe

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
)

// AlphabetMergedName labels the combined share-class row in the
// megacap cohort
const AlphabetMergedName = "Alphabet Inc. (Class A & C combined)"

// Syncer refreshes cohort snapshots from the holdings provider
// ⭐ SSOT: universe membership refresh happens here only
type Syncer struct {
	primary  contracts.HoldingsSource
	fallback contracts.HoldingsSource
	repo     contracts.UniverseRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger
	config   Config
}

// Config holds universe tuning
type Config struct {
	// MegacapSize is how many of the heaviest sp500 members form the
	// megacap cohort
	MegacapSize int `yaml:"megacap_size"`
}

// DefaultConfig returns the standard cohort sizing
func DefaultConfig() Config {
	return Config{MegacapSize: 25}
}

// SyncResult summarizes one cohort's refresh
type SyncResult struct {
	Cohort  contracts.Cohort
	Members int
	Added   []string
	Removed []string
}

// NewSyncer creates a new Syncer. fallback may be nil.
func NewSyncer(
	primary contracts.HoldingsSource,
	fallback contracts.HoldingsSource,
	repo contracts.UniverseRepository,
	m *metrics.Metrics,
	log *logger.Logger,
	config Config,
) *Syncer {
	return &Syncer{
		primary:  primary,
		fallback: fallback,
		repo:     repo,
		metrics:  m,
		logger:   log.WithField("module", "universe"),
		config:   config,
	}
}

// Sync downloads both index cohorts, derives the megacap cohort,
// replaces each snapshot, and appends membership changes to the log
func (s *Syncer) Sync(ctx context.Context, asOf time.Time) ([]SyncResult, error) {
	asOf = contracts.DateOnly(asOf)
	s.logger.WithField("as_of", contracts.FormatDate(asOf)).Info("Starting universe sync")

	var sp500, sp400 []contracts.Constituent
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		members, err := s.fetchCohort(ctx, contracts.CohortSP500)
		if err != nil {
			errCh <- fmt.Errorf("fetch sp500: %w", err)
			return
		}
		sp500 = members
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		members, err := s.fetchCohort(ctx, contracts.CohortSP400)
		if err != nil {
			errCh <- fmt.Errorf("fetch sp400: %w", err)
			return
		}
		sp400 = members
	}()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		return nil, err
	}

	for i := range sp500 {
		sp500[i].AsOf = asOf
	}
	for i := range sp400 {
		sp400[i].AsOf = asOf
	}

	cohorts := []struct {
		cohort  contracts.Cohort
		members []contracts.Constituent
	}{
		{contracts.CohortSP500, sp500},
		{contracts.CohortSP400, sp400},
	}

	megacap := DeriveMegacap(sp500, s.config.MegacapSize, asOf)
	if megacap == nil {
		// Weightless holdings (the scrape fallback) cannot pick the
		// heaviest members, so the prior megacap snapshot stands
		s.logger.Warn("Holdings carry no weights, keeping prior megacap snapshot")
	} else {
		cohorts = append(cohorts, struct {
			cohort  contracts.Cohort
			members []contracts.Constituent
		}{contracts.CohortMegacap, megacap})
	}

	results := make([]SyncResult, 0, len(cohorts))
	for _, c := range cohorts {
		result, err := s.replaceAndLog(ctx, c.cohort, c.members, asOf)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		s.logger.WithFields(map[string]interface{}{
			"cohort":  c.cohort.String(),
			"members": result.Members,
			"added":   len(result.Added),
			"removed": len(result.Removed),
		}).Info("Cohort replaced")
	}

	return results, nil
}

// fetchCohort tries the primary holdings source and falls back to the
// scrape source when it fails
func (s *Syncer) fetchCohort(ctx context.Context, cohort contracts.Cohort) ([]contracts.Constituent, error) {
	start := time.Now()
	members, err := s.primary.Holdings(ctx, cohort)
	s.metrics.ObserveFetch("holdings", time.Since(start), err)
	if err == nil {
		return members, nil
	}
	if s.fallback == nil {
		return nil, err
	}

	s.logger.WithError(err).WithField("cohort", cohort.String()).Warn("Primary holdings source failed, trying fallback")

	start = time.Now()
	members, ferr := s.fallback.Holdings(ctx, cohort)
	s.metrics.ObserveFetch("holdings_fallback", time.Since(start), ferr)
	if ferr != nil {
		return nil, fmt.Errorf("fallback after %v: %w", err, ferr)
	}
	return members, nil
}

// replaceAndLog diffs the new snapshot against the stored one, swaps
// it, and appends the membership changes
func (s *Syncer) replaceAndLog(ctx context.Context, cohort contracts.Cohort, members []contracts.Constituent, asOf time.Time) (SyncResult, error) {
	old, err := s.repo.GetCohort(ctx, cohort)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load prior %s snapshot: %w", cohort, err)
	}

	added, removed := diffSymbols(old.Symbols(), symbolsOf(members))

	if err := s.repo.ReplaceCohort(ctx, cohort, members); err != nil {
		return SyncResult{}, fmt.Errorf("replace %s snapshot: %w", cohort, err)
	}

	changes := make([]contracts.UniverseChange, 0, len(added)+len(removed))
	for _, sym := range added {
		changes = append(changes, contracts.UniverseChange{
			RunDate: asOf, Cohort: cohort, Action: contracts.ChangeAdded, Symbol: sym,
		})
	}
	for _, sym := range removed {
		changes = append(changes, contracts.UniverseChange{
			RunDate: asOf, Cohort: cohort, Action: contracts.ChangeRemoved, Symbol: sym,
		})
	}
	if err := s.repo.LogChanges(ctx, changes); err != nil {
		return SyncResult{}, fmt.Errorf("log %s changes: %w", cohort, err)
	}

	s.metrics.SetUniverseSize(cohort.String(), len(members))

	return SyncResult{
		Cohort:  cohort,
		Members: len(members),
		Added:   added,
		Removed: removed,
	}, nil
}

// DeriveMegacap builds the megacap cohort from an sp500 snapshot: the
// two Alphabet share classes merge into one GOOGL row carrying their
// combined weight, then the heaviest `size` members win. Returns nil
// when the snapshot carries no weights.
func DeriveMegacap(sp500 []contracts.Constituent, size int, asOf time.Time) []contracts.Constituent {
	if len(sp500) == 0 {
		return nil
	}

	weighted := false
	for _, m := range sp500 {
		if m.Weight > 0 {
			weighted = true
			break
		}
	}
	if !weighted {
		return nil
	}

	var members []contracts.Constituent
	googWeight := 0.0
	googSeen := false
	for _, m := range sp500 {
		if m.Symbol == "GOOG" || m.Symbol == "GOOGL" {
			googWeight += m.Weight
			googSeen = true
			continue
		}
		members = append(members, contracts.Constituent{
			Cohort: contracts.CohortMegacap,
			Symbol: m.Symbol,
			Name:   m.Name,
			Weight: m.Weight,
			AsOf:   asOf,
		})
	}
	if googSeen {
		members = append(members, contracts.Constituent{
			Cohort: contracts.CohortMegacap,
			Symbol: "GOOGL",
			Name:   AlphabetMergedName,
			Weight: googWeight,
			AsOf:   asOf,
		})
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].Weight != members[j].Weight {
			return members[i].Weight > members[j].Weight
		}
		return members[i].Symbol < members[j].Symbol
	})

	if len(members) > size {
		members = members[:size]
	}
	return members
}

// diffSymbols returns the set differences between snapshots, sorted
// for deterministic logs
func diffSymbols(old, new []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(old))
	for _, s := range old {
		oldSet[s] = true
	}
	newSet := make(map[string]bool, len(new))
	for _, s := range new {
		newSet[s] = true
	}

	for s := range newSet {
		if !oldSet[s] {
			added = append(added, s)
		}
	}
	for s := range oldSet {
		if !newSet[s] {
			removed = append(removed, s)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func symbolsOf(members []contracts.Constituent) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Symbol)
	}
	return out
}
