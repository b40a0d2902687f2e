package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/gorilla/mux"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/internal/report"
	"github.com/mhan/momo/pkg/logger"
)

// reportDatePattern extracts the run date from a report file name
var reportDatePattern = regexp.MustCompile(`^momentum_(\d{4}-\d{2}-\d{2})\.html$`)

// ReportsHandler serves rendered report files
type ReportsHandler struct {
	reportDir string
	logger    *logger.Logger
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(reportDir string, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{
		reportDir: reportDir,
		logger:    log,
	}
}

// ReportEntry is one generated report in the listing
type ReportEntry struct {
	Date string `json:"date"`
	File string `json:"file"`
	URL  string `json:"url"`
}

// List returns the generated reports, newest first
// GET /api/v1/reports
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := os.ReadDir(h.reportDir)
	if err != nil && !os.IsNotExist(err) {
		h.logger.WithError(err).Error("Failed to scan report dir")
		respondError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	entries := make([]ReportEntry, 0)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := reportDatePattern.FindStringSubmatch(f.Name())
		if m == nil {
			continue
		}
		entries = append(entries, ReportEntry{
			Date: m[1],
			File: f.Name(),
			URL:  "/api/v1/reports/" + m[1],
		})
	}

	// ISO dates sort lexicographically
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count":   len(entries),
			"reports": entries,
		},
	})
}

// Get serves one rendered report as HTML
// GET /api/v1/reports/{date}
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["date"]

	date, err := contracts.ParseDate(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	path := filepath.Join(h.reportDir, report.FileName(date))
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	http.ServeFile(w, r, path)
}
