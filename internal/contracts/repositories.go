package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: repository interfaces are defined here only

// ErrNoTradingData marks a date (or backtracked date window) with no
// stored closes
var ErrNoTradingData = errors.New("no trading data in window")

// UniverseRepository manages constituent snapshots and the change log
type UniverseRepository interface {
	// ReplaceCohort swaps the cohort snapshot in one transaction
	ReplaceCohort(ctx context.Context, cohort Cohort, members []Constituent) error
	GetCohort(ctx context.Context, cohort Cohort) (*Universe, error)

	// LogChanges appends change entries; duplicates are ignored so
	// re-runs stay idempotent
	LogChanges(ctx context.Context, changes []UniverseChange) error
	GetChanges(ctx context.Context, cohort Cohort, limit int) ([]UniverseChange, error)
}

// PriceRepository manages daily price bars
type PriceRepository interface {
	// SaveBatch inserts bars, skipping rows already stored.
	// Returns the number of rows actually written.
	SaveBatch(ctx context.Context, bars []PriceBar) (int, error)

	// ResolveTradingDate backtracks target to the nearest prior date
	// with any stored closes, at most maxBack business days.
	// Returns ErrNoTradingData when the window is exhausted.
	ResolveTradingDate(ctx context.Context, target time.Time, maxBack int) (time.Time, error)

	// GetCloses returns symbol → close for one trade date, restricted
	// to the given symbols
	GetCloses(ctx context.Context, symbols []string, date time.Time) (map[string]float64, error)

	// GetClose returns one symbol's close on an exact date
	GetClose(ctx context.Context, symbol string, date time.Time) (float64, error)

	// CloseOnOrBefore returns the most recent bar for symbol at or
	// before target, looking back at most maxBack business days.
	// Returns ErrNoTradingData when the window holds nothing.
	CloseOnOrBefore(ctx context.Context, symbol string, target time.Time, maxBack int) (PriceBar, error)

	// GetSeries returns one symbol's bars in [from, to], date ascending
	GetSeries(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)

	// CountOnDate counts how many of the given symbols have a close
	// stored on date (the populated check)
	CountOnDate(ctx context.Context, symbols []string, date time.Time) (int, error)
}

// ScoreRepository manages momentum scores and top picks
type ScoreRepository interface {
	// ReplaceScores swaps the full ranking for (cohort, asOf) in one tx
	ReplaceScores(ctx context.Context, cohort Cohort, asOf time.Time, rows []MomentumRow) error
	GetScores(ctx context.Context, cohort Cohort, asOf time.Time) ([]MomentumRow, error)

	// ReplacePicks swaps the screened top picks for (cohort, asOf)
	ReplacePicks(ctx context.Context, cohort Cohort, asOf time.Time, rows []MomentumRow) error
	GetPicks(ctx context.Context, cohort Cohort, asOf time.Time) ([]MomentumRow, error)

	// LatestAsOf returns the most recent scored run date for a cohort.
	// Returns ErrNoTradingData when the cohort has never been scored.
	LatestAsOf(ctx context.Context, cohort Cohort) (time.Time, error)

	// PriorAsOf returns the most recent scored run date strictly
	// before the given date (for report diffs)
	PriorAsOf(ctx context.Context, cohort Cohort, before time.Time) (time.Time, error)
}

// CompanyRepository manages cached reference metadata and news
type CompanyRepository interface {
	GetMeta(ctx context.Context, symbol string) (*CompanyMeta, error)
	UpsertMeta(ctx context.Context, meta *CompanyMeta) error

	// SaveNews inserts stories, skipping duplicates. Returns rows written.
	SaveNews(ctx context.Context, items []NewsItem) (int, error)
	GetNews(ctx context.Context, symbol string, limit int) ([]NewsItem, error)

	// LatestNewsTime returns the newest stored publish time for a
	// symbol, zero time when none is stored
	LatestNewsTime(ctx context.Context, symbol string) (time.Time, error)

	// PruneNews deletes stories published before the cutoff.
	// Returns rows deleted.
	PruneNews(ctx context.Context, cutoff time.Time) (int64, error)
}
