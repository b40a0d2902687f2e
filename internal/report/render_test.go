package report

import (
	"bytes"
	"context"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleReturn(t *testing.T) {
	assert.Equal(t, template.HTML("-"), styleReturn(math.NaN(), false))
	assert.Equal(t, template.HTML(`<span style="color:#006400;">+30.0%</span>`), styleReturn(0.30, false))
	assert.Equal(t, template.HTML(`<span style="color:#006400;">+0.0%</span>`), styleReturn(0, false))
	assert.Equal(t, template.HTML(`<span style="color:#c42020;">−25.0%</span>`), styleReturn(-0.25, false))

	// The darker palette only changes the negative shade
	assert.Equal(t, template.HTML(`<span style="color:#006400;">+30.0%</span>`), styleReturn(0.30, true))
	assert.Equal(t, template.HTML(`<span style="color:#7d0d0d;">−25.0%</span>`), styleReturn(-0.25, true))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$220.00", money(220))
	assert.Equal(t, "$123.46", money(123.456))
	assert.Equal(t, "$—", money(math.NaN()))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "momentum_2025-08-23.html", FileName(reportRunDate))
}

func TestRenderReport(t *testing.T) {
	fx := newModelFixture()
	// A negative benchmark week lets a negative pick week beat it
	fx.prices.closes["2025-08-15"]["VOO"] = 560

	model, err := fx.builder().Build(context.Background(), reportRunDate)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(testLogger()).Render(&buf, model))
	page := buf.String()

	assert.Contains(t, page, "<title>Momentum Report – August 23, 2025</title>")
	assert.Contains(t, page, "Momentum Report – August 23, 2025</h2>")

	// Cohort summary headings in report order
	assert.Contains(t, page, "Megacap Stocks - Top 25 stocks by Market Cap in the SP500")
	assert.Contains(t, page, "S&P 500 - Large Cap Stocks")
	assert.Contains(t, page, "S&P 400 - MidCap Stocks")

	// Benchmark line
	assert.Contains(t, page, "Benchmark (VOO):</strong> $550.00")

	// Summary anchors and the card back-link resolve to each other
	assert.Contains(t, page, `<div id="summary-SPY">`)
	assert.Contains(t, page, `<div id="SPY-NVDA"`)
	assert.Contains(t, page, `<a href="#summary-SPY">`)

	// An addition renders blue italic with its anchor link
	assert.Contains(t, page, `<i><span style="color:#0000FF"><a href="#SPY-AAPL"`)

	// A dropped symbol renders gray with freshly computed standing
	assert.Contains(t, page, `<span style="color:#808080">DECK – $120.00`)

	// AAPL's negative week beat the benchmark's, so it gets the
	// darker negative shade
	assert.Contains(t, page, "#7d0d0d")

	// Card enrichment
	assert.Contains(t, page, "NVDA – NVIDIA Corporation – $130.00")
	assert.Contains(t, page, "Designs accelerated computing platforms.")
	assert.Contains(t, page, `href="https://example.com/nvda"`)
	assert.Contains(t, page, "(2025-08-21)")
	assert.Contains(t, page, "Rank Change:</strong> 2")

	// Legend
	assert.Contains(t, page, "New stocks in")
}

func TestRenderReportBenchmarkUnavailable(t *testing.T) {
	fx := newModelFixture()
	for _, day := range []string{"2025-08-22", "2025-08-15", "2024-08-23"} {
		delete(fx.prices.closes[day], "VOO")
	}

	model, err := fx.builder().Build(context.Background(), reportRunDate)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(testLogger()).Render(&buf, model))

	assert.Contains(t, buf.String(), "Benchmark (VOO):</strong> Not available")
}

func TestWriteFile(t *testing.T) {
	fx := newModelFixture()
	model, err := fx.builder().Build(context.Background(), reportRunDate)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := NewRenderer(testLogger()).WriteFile(model, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "momentum_2025-08-23.html"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Momentum Report")
}
