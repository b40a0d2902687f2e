package contracts

import (
	"fmt"
	"time"
)

// PriceBar represents one daily OHLCV observation for a symbol
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Validate checks the bar is storable
func (b *PriceBar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("price bar has empty symbol")
	}
	if b.TradeDate.IsZero() {
		return fmt.Errorf("price bar for %s has zero trade date", b.Symbol)
	}
	if b.Close <= 0 {
		return fmt.Errorf("price bar for %s has non-positive close %f", b.Symbol, b.Close)
	}
	return nil
}

// MinPriceCoverage is the fraction of a cohort that must have a close
// on an anchor date before ranking may proceed
const MinPriceCoverage = 0.9

// CoverageSnapshot represents price coverage for a cohort on one date.
// Passed carries the gate's verdict against its configured threshold.
// ⭐ SSOT: quality gate result passed from collection to ranking
type CoverageSnapshot struct {
	Date      time.Time `json:"date"`
	Cohort    Cohort    `json:"cohort"`
	Expected  int       `json:"expected"`
	Populated int       `json:"populated"`
	Coverage  float64   `json:"coverage"`
	Passed    bool      `json:"passed"`
}
