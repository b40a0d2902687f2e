package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mhan/momo/internal/contracts"
)

// aggsResponse is the envelope shared by the aggregate endpoints
type aggsResponse struct {
	Ticker       string   `json:"ticker,omitempty"`
	Status       string   `json:"status"`
	Message      string   `json:"message,omitempty"`
	QueryCount   int      `json:"queryCount"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
}

// aggBar is one OHLCV aggregate. Grouped responses carry the ticker in
// T; per-ticker responses omit it.
type aggBar struct {
	Ticker    string  `json:"T,omitempty"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"` // fractional in grouped responses
	Timestamp int64   `json:"t"` // Unix milliseconds
}

// toBar converts an aggregate to a contracts.PriceBar
func (a *aggBar) toBar(symbol string) contracts.PriceBar {
	if symbol == "" {
		symbol = a.Ticker
	}
	return contracts.PriceBar{
		Symbol:    symbol,
		TradeDate: contracts.DateOnly(time.UnixMilli(a.Timestamp).UTC()),
		Open:      a.Open,
		High:      a.High,
		Low:       a.Low,
		Close:     a.Close,
		Volume:    int64(a.Volume),
	}
}

// GroupedDaily fetches bars for the whole US stock market on one date
// ⭐ SSOT: grouped daily bars come from this function only
func (c *Client) GroupedDaily(ctx context.Context, date time.Time) ([]contracts.PriceBar, error) {
	path := fmt.Sprintf("/v2/aggs/grouped/locale/us/market/stocks/%s", contracts.FormatDate(date))
	params := url.Values{}
	params.Set("adjusted", "true")

	var result aggsResponse
	if err := c.getJSON(ctx, path, params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.Message); err != nil {
		return nil, err
	}

	bars := make([]contracts.PriceBar, 0, len(result.Results))
	for i := range result.Results {
		bars = append(bars, result.Results[i].toBar(""))
	}

	c.logger.WithFields(map[string]interface{}{
		"date":  contracts.FormatDate(date),
		"count": len(bars),
	}).Debug("Fetched grouped daily bars")

	return bars, nil
}

// DailyBar fetches one symbol's bar for one date. Grouped stock bars
// do not cover ETFs, so the benchmark goes through here.
func (c *Client) DailyBar(ctx context.Context, symbol string, date time.Time) (*contracts.PriceBar, error) {
	bars, err := c.RangeDaily(ctx, symbol, date, date)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoResults, symbol, contracts.FormatDate(date))
	}
	return &bars[0], nil
}

// RangeDaily fetches one symbol's daily bars over [from, to], date
// ascending
func (c *Client) RangeDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		symbol, contracts.FormatDate(from), contracts.FormatDate(to))
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", "50000")

	var result aggsResponse
	if err := c.getJSON(ctx, path, params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.Message); err != nil {
		return nil, err
	}

	bars := make([]contracts.PriceBar, 0, len(result.Results))
	for i := range result.Results {
		bars = append(bars, result.Results[i].toBar(symbol))
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"from":   contracts.FormatDate(from),
		"to":     contracts.FormatDate(to),
		"count":  len(bars),
	}).Debug("Fetched range daily bars")

	return bars, nil
}
