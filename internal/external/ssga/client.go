package ssga

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/httputil"
	"github.com/mhan/momo/pkg/logger"
)

// Client downloads index fund holdings workbooks from SSGA
// ⭐ SSOT: holdings downloads go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

var _ contracts.HoldingsSource = (*Client)(nil)

// NewClient creates a new SSGA holdings client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("ssga"),
		baseURL:    cfg.SSGA.BaseURL,
	}
}

// FundTicker maps a cohort to the ETF whose holdings mirror it
func FundTicker(cohort contracts.Cohort) (string, error) {
	switch cohort {
	case contracts.CohortSP500:
		return "spy", nil
	case contracts.CohortSP400:
		return "mdy", nil
	default:
		// megacap is derived from sp500, never downloaded
		return "", fmt.Errorf("no holdings fund for cohort %s", cohort)
	}
}

// Holdings downloads and parses the daily holdings workbook for a cohort
func (c *Client) Holdings(ctx context.Context, cohort contracts.Cohort) ([]contracts.Constituent, error) {
	fund, err := FundTicker(cohort)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/library-content/products/fund-data/etfs/us/holdings-daily-us-en-%s.xlsx",
		c.baseURL, fund)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download %s holdings: %w", fund, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s holdings: unexpected status code %d", fund, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s holdings body: %w", fund, err)
	}

	members, err := parseHoldings(data, cohort, contracts.DateOnly(time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("parse %s holdings: %w", fund, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"cohort": cohort.String(),
		"fund":   fund,
		"count":  len(members),
	}).Info("Downloaded holdings")

	return members, nil
}
