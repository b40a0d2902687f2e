package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan/momo/internal/contracts"
)

// fakeUniverse serves a fixed member list per cohort
type fakeUniverse struct {
	cohorts map[contracts.Cohort][]contracts.Constituent
}

func (f *fakeUniverse) ReplaceCohort(ctx context.Context, cohort contracts.Cohort, members []contracts.Constituent) error {
	return nil
}

func (f *fakeUniverse) GetCohort(ctx context.Context, cohort contracts.Cohort) (*contracts.Universe, error) {
	return &contracts.Universe{Cohort: cohort, Members: f.cohorts[cohort]}, nil
}

func (f *fakeUniverse) LogChanges(ctx context.Context, changes []contracts.UniverseChange) error {
	return nil
}

func (f *fakeUniverse) GetChanges(ctx context.Context, cohort contracts.Cohort, limit int) ([]contracts.UniverseChange, error) {
	return nil, nil
}

// fakePrices answers CountOnDate with a fixed populated set
type fakePrices struct {
	contracts.PriceRepository
	populated map[string]bool
}

func (f *fakePrices) CountOnDate(ctx context.Context, symbols []string, date time.Time) (int, error) {
	count := 0
	for _, s := range symbols {
		if f.populated[s] {
			count++
		}
	}
	return count, nil
}

func members(cohort contracts.Cohort, symbols ...string) []contracts.Constituent {
	out := make([]contracts.Constituent, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, contracts.Constituent{Cohort: cohort, Symbol: s})
	}
	return out
}

func TestGateCheck(t *testing.T) {
	universe := &fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{
		contracts.CohortSP500: members(contracts.CohortSP500, "NVDA", "MSFT", "AAPL", "AMZN"),
	}}
	date := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		populated     map[string]bool
		wantPopulated int
		wantPassed    bool
	}{
		{
			name:          "full coverage",
			populated:     map[string]bool{"NVDA": true, "MSFT": true, "AAPL": true, "AMZN": true},
			wantPopulated: 4,
			wantPassed:    true,
		},
		{
			name:          "three of four is below the gate",
			populated:     map[string]bool{"NVDA": true, "MSFT": true, "AAPL": true},
			wantPopulated: 3,
			wantPassed:    false,
		},
		{
			name:          "empty store",
			populated:     map[string]bool{},
			wantPopulated: 0,
			wantPassed:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(universe, &fakePrices{populated: tt.populated}, DefaultConfig())

			snap, err := gate.Check(context.Background(), contracts.CohortSP500, date)
			require.NoError(t, err)

			assert.Equal(t, contracts.CohortSP500, snap.Cohort)
			assert.Equal(t, 4, snap.Expected)
			assert.Equal(t, tt.wantPopulated, snap.Populated)
			assert.Equal(t, tt.wantPassed, snap.Passed)
		})
	}
}

func TestGateCheckEmptyCohort(t *testing.T) {
	universe := &fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{}}
	gate := NewGate(universe, &fakePrices{}, DefaultConfig())

	_, err := gate.Check(context.Background(), contracts.CohortSP500, time.Now())
	assert.Error(t, err)
}

func TestGateCheckAll(t *testing.T) {
	universe := &fakeUniverse{cohorts: map[contracts.Cohort][]contracts.Constituent{
		contracts.CohortMegacap: members(contracts.CohortMegacap, "NVDA"),
		contracts.CohortSP500:   members(contracts.CohortSP500, "NVDA", "MSFT"),
		contracts.CohortSP400:   members(contracts.CohortSP400, "DECK"),
	}}
	prices := &fakePrices{populated: map[string]bool{"NVDA": true, "MSFT": true, "DECK": true}}
	gate := NewGate(universe, prices, DefaultConfig())

	snaps, err := gate.CheckAll(context.Background(), time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	for _, snap := range snaps {
		assert.True(t, snap.Passed, "cohort %s", snap.Cohort)
	}
}
