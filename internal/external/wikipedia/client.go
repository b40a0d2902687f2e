// Package wikipedia scrapes index constituent tables as a fallback
// when the fund provider's holdings download is unavailable. Scraped
// rows carry no index weights, so cohorts that need weights (megacap
// derivation) cannot be built from this source.
package wikipedia

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/httputil"
	"github.com/mhan/momo/pkg/logger"
)

type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

var _ contracts.HoldingsSource = (*Client)(nil)

func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("wikipedia"),
		baseURL:    cfg.Wikipedia.BaseURL,
	}
}

// pageTitle maps a cohort to its constituent list article
func pageTitle(cohort contracts.Cohort) (string, error) {
	switch cohort {
	case contracts.CohortSP500:
		return "List_of_S%26P_500_companies", nil
	case contracts.CohortSP400:
		return "List_of_S%26P_400_companies", nil
	default:
		return "", fmt.Errorf("no constituent article for cohort %s", cohort)
	}
}

// Holdings scrapes the constituent table for the cohort's index.
// Every member comes back with weight zero.
func (c *Client) Holdings(ctx context.Context, cohort contracts.Cohort) ([]contracts.Constituent, error) {
	title, err := pageTitle(cohort)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/wiki/%s", c.baseURL, title)
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituent page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("constituent page returned HTTP %d", resp.StatusCode)
	}

	members, err := parseConstituents(resp.Body, cohort, contracts.DateOnly(time.Now().UTC()))
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"cohort": cohort.String(),
		"count":  len(members),
	}).Info("Scraped constituent table")
	return members, nil
}

// parseConstituents reads the article's constituents table. The table
// carries id="constituents" with Symbol and Security in the first two
// columns. Share-class symbols keep their dots (BRK.B), matching the
// holdings files and the market-data vendor.
func parseConstituents(r io.Reader, cohort contracts.Cohort, asOf time.Time) ([]contracts.Constituent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse constituent page: %w", err)
	}

	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("no constituent table found")
	}

	var members []contracts.Constituent
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		symbol := normalizeSymbol(cells.Eq(0).Text())
		if symbol == "" {
			return
		}

		members = append(members, contracts.Constituent{
			Cohort: cohort,
			Symbol: symbol,
			Name:   strings.TrimSpace(cells.Eq(1).Text()),
			Weight: 0,
			AsOf:   asOf,
		})
	})

	if len(members) == 0 {
		return nil, fmt.Errorf("constituent table has no rows")
	}
	return members, nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
