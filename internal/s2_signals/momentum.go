package s2_signals

import (
	"errors"
	"fmt"
	"math"

	"github.com/mhan/momo/internal/contracts"
)

// ErrInsufficientHistory marks a price series too short to cover the
// full trailing window. Tickers without a full window are excluded
// from the cycle, never scored on a partial window.
var ErrInsufficientHistory = errors.New("insufficient price history")

// DefaultWindow is the trailing window in trading sessions (~12 months)
const DefaultWindow = 252

// TrailingReturn computes the full-window trailing return from a
// date-ascending bar series: (latest close / close window sessions
// prior) - 1. window <= 0 selects DefaultWindow.
// ⭐ SSOT: series momentum math lives here only
func TrailingReturn(bars []contracts.PriceBar, window int) (float64, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(bars) < window+1 {
		return 0, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientHistory, len(bars), window+1)
	}

	latest := bars[len(bars)-1].Close
	anchor := bars[len(bars)-1-window].Close
	if anchor <= 0 {
		return 0, fmt.Errorf("%w: anchor close %.4f is not positive", ErrInsufficientHistory, anchor)
	}

	return latest/anchor - 1, nil
}

// AnchorCloses holds one symbol's closes at the five resolved anchor
// sessions. A zero value marks a close the store could not resolve.
type AnchorCloses struct {
	Yesterday        float64
	WeekAgo          float64
	OneMonthAgo      float64
	OneYearAgo       float64
	YearPlusMonthAgo float64
}

// SnapshotReturns holds the three returns ranked each cycle. A return
// whose inputs are missing is NaN, so a symbol still ranks in the
// columns it can support; the ranker drops incomplete rows after
// ranking, keeping rank slots stable for everyone else.
type SnapshotReturns struct {
	Current   float64 // trailing 12M: yesterday vs one year ago
	LastWeek  float64 // yesterday vs week ago
	LastMonth float64 // trailing 12M measured one month ago
}

// Snapshot derives the cycle returns from anchor closes
func Snapshot(c AnchorCloses) SnapshotReturns {
	return SnapshotReturns{
		Current:   ratioReturn(c.Yesterday, c.OneYearAgo),
		LastWeek:  ratioReturn(c.Yesterday, c.WeekAgo),
		LastMonth: ratioReturn(c.OneMonthAgo, c.YearPlusMonthAgo),
	}
}

// Complete checks that every return resolved
func (s SnapshotReturns) Complete() bool {
	return !math.IsNaN(s.Current) && !math.IsNaN(s.LastWeek) && !math.IsNaN(s.LastMonth)
}

func ratioReturn(now, then float64) float64 {
	if now <= 0 || then <= 0 {
		return math.NaN()
	}
	return now/then - 1
}
