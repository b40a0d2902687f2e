package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/httputil"
	"github.com/mhan/momo/pkg/logger"
)

// ErrNoResults marks an empty API response (holidays, unknown tickers)
var ErrNoResults = errors.New("polygon: no results")

// Client handles communication with the Polygon REST API
// ⭐ SSOT: Polygon API calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// Compile-time interface checks
var (
	_ contracts.BarSource     = (*Client)(nil)
	_ contracts.CompanySource = (*Client)(nil)
)

// NewClient creates a new Polygon API client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("polygon"),
		apiKey:     cfg.Polygon.APIKey,
		baseURL:    cfg.Polygon.BaseURL,
	}
}

// getJSON builds the request URL with the apiKey query parameter and
// decodes the response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	if err := c.httpClient.GetJSON(ctx, fullURL, dest); err != nil {
		return fmt.Errorf("polygon %s: %w", path, err)
	}
	return nil
}

// checkStatus rejects explicit API-level errors. The free tier labels
// successful responses "DELAYED", so only known failure states reject.
func checkStatus(status, message string) error {
	switch status {
	case "ERROR", "NOT_AUTHORIZED":
		return fmt.Errorf("polygon API error: %s - %s", status, message)
	}
	return nil
}
