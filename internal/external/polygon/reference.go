package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mhan/momo/internal/contracts"
)

// tickerDetailsResponse wraps /v3/reference/tickers/{symbol}
type tickerDetailsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Results struct {
		Ticker      string `json:"ticker"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"results"`
}

// newsResponse wraps /v2/reference/news
type newsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Results []struct {
		Title        string `json:"title"`
		ArticleURL   string `json:"article_url"`
		PublishedUTC string `json:"published_utc"`
	} `json:"results"`
}

// TickerDetails fetches reference metadata for one symbol
// ⭐ SSOT: ticker reference data comes from this function only
func (c *Client) TickerDetails(ctx context.Context, symbol string) (*contracts.CompanyMeta, error) {
	path := fmt.Sprintf("/v3/reference/tickers/%s", symbol)

	var result tickerDetailsResponse
	if err := c.getJSON(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.Message); err != nil {
		return nil, err
	}
	if result.Results.Ticker == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, symbol)
	}

	return &contracts.CompanyMeta{
		Symbol:      result.Results.Ticker,
		Name:        result.Results.Name,
		Description: result.Results.Description,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// RecentNews fetches the most recent stories for one symbol, newest
// first
func (c *Client) RecentNews(ctx context.Context, symbol string, limit int) ([]contracts.NewsItem, error) {
	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order", "desc")
	params.Set("sort", "published_utc")

	var result newsResponse
	if err := c.getJSON(ctx, "/v2/reference/news", params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.Message); err != nil {
		return nil, err
	}

	items := make([]contracts.NewsItem, 0, len(result.Results))
	for _, r := range result.Results {
		published, err := time.Parse(time.RFC3339, r.PublishedUTC)
		if err != nil {
			c.logger.WithField("published_utc", r.PublishedUTC).Warn("Skipping story with unparseable timestamp")
			continue
		}
		items = append(items, contracts.NewsItem{
			Symbol:       symbol,
			PublishedUTC: published.UTC(),
			Headline:     r.Title,
			URL:          r.ArticleURL,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(items),
	}).Debug("Fetched recent news")

	return items, nil
}
