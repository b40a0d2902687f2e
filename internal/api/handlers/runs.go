package handlers

import (
	"net/http"

	"github.com/mhan/momo/internal/scheduler"
	"github.com/mhan/momo/pkg/logger"
)

// RunHistory is the slice of the scheduler the API reads
type RunHistory interface {
	RecentResults(n int) []scheduler.JobResult
	GetJobStats() map[string]scheduler.JobStats
}

// RunsHandler serves job execution history
type RunsHandler struct {
	history RunHistory
	logger  *logger.Logger
}

// NewRunsHandler creates a new runs handler. history is nil when the
// API runs without an embedded scheduler.
func NewRunsHandler(history RunHistory, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		history: history,
		logger:  log,
	}
}

// GetRuns returns recent job executions across every job
// GET /api/v1/runs?limit=20
func (h *RunsHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20, 100)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	if h.history == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"count": 0,
				"runs":  []scheduler.JobResult{},
				"jobs":  map[string]scheduler.JobStats{},
			},
		})
		return
	}

	runs := h.history.RecentResults(limit)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"count": len(runs),
			"runs":  runs,
			"jobs":  h.history.GetJobStats(),
		},
	})
}
