package contracts

import "time"

// MomentumRow is one fully ranked momentum record
// ⭐ SSOT: ranking result passed from ranker to screen, report, API
type MomentumRow struct {
	Cohort Cohort    `json:"cohort"`
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	AsOf   time.Time `json:"as_of"`

	Price float64 `json:"price"` // latest resolved close

	CurrentReturn   float64 `json:"current_return"`    // trailing 12M
	LastWeekReturn  float64 `json:"last_week_return"`  // 1 week
	LastMonthReturn float64 `json:"last_month_return"` // trailing 12M measured one month ago

	CurrentRank   int `json:"current_rank"`    // 1-based, min method on ties
	LastMonthRank int `json:"last_month_rank"` // same method on last-month returns
	RankChange    int `json:"rank_change"`     // last_month_rank - current_rank
}

// Improving checks if the rank held or moved up versus one month ago
func (r *MomentumRow) Improving() bool {
	return r.CurrentRank <= r.LastMonthRank
}

// IsTopRanked checks if the row is in the top N ranks
func (r *MomentumRow) IsTopRanked(n int) bool {
	return r.CurrentRank <= n && r.CurrentRank > 0
}
