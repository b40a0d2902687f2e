package contracts

import (
	"context"
	"time"
)

// HoldingsSource fetches an index constituent list
// ⭐ SSOT: membership source interface (primary and fallback share it)
type HoldingsSource interface {
	Holdings(ctx context.Context, cohort Cohort) ([]Constituent, error)
}

// BarSource fetches daily price bars from the market-data API
// ⭐ SSOT: price source interface
type BarSource interface {
	// GroupedDaily returns bars for the whole US stock market on one date
	GroupedDaily(ctx context.Context, date time.Time) ([]PriceBar, error)

	// DailyBar returns one symbol's bar for one date (used for the
	// benchmark ETF, which grouped stock bars do not include)
	DailyBar(ctx context.Context, symbol string, date time.Time) (*PriceBar, error)

	// RangeDaily returns one symbol's bars over [from, to]
	RangeDaily(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
}

// CompanySource fetches reference metadata and news
// ⭐ SSOT: reference source interface
type CompanySource interface {
	TickerDetails(ctx context.Context, symbol string) (*CompanyMeta, error)
	RecentNews(ctx context.Context, symbol string, limit int) ([]NewsItem, error)
}
