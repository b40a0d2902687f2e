package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// reportNamePattern extracts the run date from a report file name
var reportNamePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\.html$`)

// Site regenerates the static index page listing every report
// newest-first, with the latest auto-loaded into the viewer frame
type Site struct {
	siteDir   string
	reportDir string
	tmpl      *template.Template
	logger    *logger.Logger
}

// NewSite creates a new Site instance
func NewSite(siteDir, reportDir string, log *logger.Logger) *Site {
	tmpl := template.Must(template.New("index").ParseFS(templateFS, "templates/index.html.tmpl"))
	return &Site{
		siteDir:   siteDir,
		reportDir: reportDir,
		tmpl:      tmpl,
		logger:    log.WithComponent("site"),
	}
}

type indexEntry struct {
	Date    time.Time
	Href    string
	Display string
	Active  bool
}

type indexModel struct {
	Latest  string
	Entries []indexEntry
}

// RebuildIndex rewrites index.html from the dated reports on disk.
// Returns how many reports were listed; with none found the existing
// index is left untouched.
func (s *Site) RebuildIndex() (int, error) {
	entries, err := s.scanReports()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		s.logger.WithField("report_dir", s.reportDir).Warn("No reports found, index left untouched")
		return 0, nil
	}

	entries[0].Active = true
	model := indexModel{Latest: entries[0].Href, Entries: entries}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html.tmpl", model); err != nil {
		return 0, fmt.Errorf("render index: %w", err)
	}

	if err := os.MkdirAll(s.siteDir, 0o755); err != nil {
		return 0, fmt.Errorf("create site dir: %w", err)
	}
	indexPath := filepath.Join(s.siteDir, "index.html")
	if err := os.WriteFile(indexPath, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":    indexPath,
		"reports": len(entries),
		"latest":  model.Latest,
	}).Info("Index regenerated")
	return len(entries), nil
}

// scanReports collects dated report files, newest first
func (s *Site) scanReports() ([]indexEntry, error) {
	files, err := os.ReadDir(s.reportDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan report dir: %w", err)
	}

	// The iframe loads reports relative to where index.html lives
	rel, err := filepath.Rel(s.siteDir, s.reportDir)
	if err != nil {
		rel = s.reportDir
	}

	var entries []indexEntry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := reportNamePattern.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		date, err := contracts.ParseDate(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, indexEntry{
			Date:    date,
			Href:    path.Join(filepath.ToSlash(rel), f.Name()),
			Display: date.Format("January 02, 2006"),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].Href > entries[j].Href
	})
	return entries, nil
}
