package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildIndex(t *testing.T) {
	siteDir := t.TempDir()
	reportDir := filepath.Join(siteDir, "reports")
	require.NoError(t, os.MkdirAll(reportDir, 0o755))

	for _, name := range []string{
		"momentum_2025-08-16.html",
		"momentum_2025-08-23.html",
		"momentum_2025-13-45.html", // not a real date
		"notes.html",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(reportDir, name), []byte("<html></html>"), 0o644))
	}

	site := NewSite(siteDir, reportDir, testLogger())
	n, err := site.RebuildIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := os.ReadFile(filepath.Join(siteDir, "index.html"))
	require.NoError(t, err)
	page := string(out)

	// The latest report auto-loads into the frame
	assert.Contains(t, page, `<iframe id="reportFrame" src="reports/momentum_2025-08-23.html">`)

	// Newest first, with the latest marked active
	first := strings.Index(page, "August 23, 2025")
	second := strings.Index(page, "August 16, 2025")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
	assert.Contains(t, page, `class="active" data-file="reports/momentum_2025-08-23.html"`)

	// Undated files stay out of the sidebar
	assert.NotContains(t, page, "notes.html")
	assert.NotContains(t, page, "2025-13-45")

	assert.Contains(t, page, "About this Site")
}

func TestRebuildIndexNoReports(t *testing.T) {
	siteDir := t.TempDir()
	site := NewSite(siteDir, filepath.Join(siteDir, "reports"), testLogger())

	n, err := site.RebuildIndex()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, statErr := os.Stat(filepath.Join(siteDir, "index.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRebuildIndexOverwritesPrevious(t *testing.T) {
	siteDir := t.TempDir()
	reportDir := filepath.Join(siteDir, "reports")
	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(reportDir, "momentum_2025-08-16.html"), []byte("x"), 0o644))

	site := NewSite(siteDir, reportDir, testLogger())
	_, err := site.RebuildIndex()
	require.NoError(t, err)

	// A later run adds a newer report and retakes the frame
	require.NoError(t, os.WriteFile(filepath.Join(reportDir, "momentum_2025-08-23.html"), []byte("x"), 0o644))
	n, err := site.RebuildIndex()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := os.ReadFile(filepath.Join(siteDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `src="reports/momentum_2025-08-23.html"`)
}
