package contracts

import "time"

// Cohort identifies an index membership list tracked by the screener
// ⭐ SSOT: cohort names used in logs, DB rows, API paths
type Cohort string

const (
	// CohortSP500 tracks S&P 500 membership (SPY holdings)
	CohortSP500 Cohort = "sp500"

	// CohortSP400 tracks S&P 400 mid-cap membership (MDY holdings)
	CohortSP400 Cohort = "sp400"

	// CohortMegacap is derived from sp500: top 25 by index weight,
	// with GOOG and GOOGL merged into a single GOOGL entry
	CohortMegacap Cohort = "megacap"
)

// AllCohorts returns the tracked cohorts in report order
func AllCohorts() []Cohort {
	return []Cohort{CohortMegacap, CohortSP500, CohortSP400}
}

// String returns the cohort name
func (c Cohort) String() string {
	return string(c)
}

// Valid checks if a cohort string is one of the tracked cohorts
func (c Cohort) Valid() bool {
	switch c {
	case CohortSP500, CohortSP400, CohortMegacap:
		return true
	}
	return false
}

// DisplayName returns the human-readable cohort title
func (c Cohort) DisplayName() string {
	switch c {
	case CohortSP500:
		return "S&P 500"
	case CohortSP400:
		return "S&P 400"
	case CohortMegacap:
		return "Megacap"
	default:
		return string(c)
	}
}

// Constituent is one index member in a cohort snapshot
type Constituent struct {
	Cohort Cohort    `json:"cohort"`
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Weight float64   `json:"weight"` // index weight in percent units
	AsOf   time.Time `json:"as_of"`
}

// Universe represents one cohort's current membership snapshot
// ⭐ SSOT: membership passed from sync to pricing and ranking
type Universe struct {
	Cohort  Cohort        `json:"cohort"`
	AsOf    time.Time     `json:"as_of"`
	Members []Constituent `json:"members"`
}

// Symbols returns the member symbols in snapshot order
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.Members))
	for i, m := range u.Members {
		out[i] = m.Symbol
	}
	return out
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, m := range u.Members {
		if m.Symbol == symbol {
			return true
		}
	}
	return false
}

// Count returns the number of members
func (u *Universe) Count() int {
	return len(u.Members)
}

// ChangeAction marks a membership change direction
type ChangeAction string

const (
	ChangeAdded   ChangeAction = "added"
	ChangeRemoved ChangeAction = "removed"
)

// UniverseChange is one append-only membership change log entry
type UniverseChange struct {
	RunDate time.Time    `json:"run_date"`
	Cohort  Cohort       `json:"cohort"`
	Action  ChangeAction `json:"action"`
	Symbol  string       `json:"symbol"`
}
