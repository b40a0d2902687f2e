package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/redis"
)

// ScreenHandler serves universe and ranking endpoints
// ⭐ SSOT: the screen read API lives in this struct only
type ScreenHandler struct {
	universe contracts.UniverseRepository
	scores   contracts.ScoreRepository
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewScreenHandler creates a new screen handler. cache may be nil.
func NewScreenHandler(
	universe contracts.UniverseRepository,
	scores contracts.ScoreRepository,
	cache *redis.Cache,
	log *logger.Logger,
) *ScreenHandler {
	return &ScreenHandler{
		universe: universe,
		scores:   scores,
		cache:    cache,
		logger:   log,
	}
}

// GetUniverse returns the current membership snapshot
// GET /api/v1/universe/{cohort}
func (h *ScreenHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cohort, ok := cohortVar(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown cohort")
		return
	}

	universe, err := h.universe.GetCohort(ctx, cohort)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"cohort":  cohort,
			"as_of":   universe.AsOf,
			"count":   universe.Count(),
			"members": universe.Members,
		},
	})
}

// GetChanges returns the membership change log, newest first
// GET /api/v1/universe/{cohort}/changes?limit=50
func (h *ScreenHandler) GetChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cohort, ok := cohortVar(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown cohort")
		return
	}

	limit, err := parseLimit(r, 50, 500)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	changes, err := h.universe.GetChanges(ctx, cohort, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe changes")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve changes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"cohort":  cohort,
			"count":   len(changes),
			"changes": changes,
		},
	})
}

// GetRankings returns the full momentum ranking for a run date
// GET /api/v1/rankings/{cohort}?date=YYYY-MM-DD (latest when omitted)
func (h *ScreenHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	h.serveRows(w, r, "rankings", h.scores.GetScores)
}

// GetPicks returns the screened top picks for a run date
// GET /api/v1/picks/{cohort}?date=YYYY-MM-DD (latest when omitted)
func (h *ScreenHandler) GetPicks(w http.ResponseWriter, r *http.Request) {
	h.serveRows(w, r, "picks", h.scores.GetPicks)
}

// serveRows resolves the run date, then serves score rows through the
// response cache
func (h *ScreenHandler) serveRows(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	fetch func(ctx context.Context, cohort contracts.Cohort, asOf time.Time) ([]contracts.MomentumRow, error),
) {
	ctx := r.Context()

	cohort, ok := cohortVar(r)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown cohort")
		return
	}

	asOf, ok := h.resolveAsOf(w, r, cohort)
	if !ok {
		return
	}

	key := fmt.Sprintf("api:%s:%s:%s", kind, cohort, contracts.FormatDate(asOf))
	if h.cache != nil {
		var rows []contracts.MomentumRow
		if found, _ := h.cache.Get(ctx, key, &rows); found {
			h.respondRows(w, cohort, asOf, rows)
			return
		}
	}

	rows, err := fetch(ctx, cohort, asOf)
	if err != nil {
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"cohort": cohort,
			"as_of":  contracts.FormatDate(asOf),
		}).Error("Failed to get score rows")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve "+kind)
		return
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, key, rows, redis.TTLShort)
	}

	h.respondRows(w, cohort, asOf, rows)
}

// resolveAsOf picks the run date: an explicit ?date= or the latest
// scored run. Writes the error response itself on failure.
func (h *ScreenHandler) resolveAsOf(w http.ResponseWriter, r *http.Request, cohort contracts.Cohort) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		asOf, err := h.scores.LatestAsOf(r.Context(), cohort)
		if errors.Is(err, contracts.ErrNoTradingData) {
			respondError(w, http.StatusNotFound, "No scored runs for cohort")
			return time.Time{}, false
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to resolve latest run date")
			respondError(w, http.StatusInternalServerError, "Failed to resolve run date")
			return time.Time{}, false
		}
		return asOf, true
	}

	asOf, err := contracts.ParseDate(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return time.Time{}, false
	}
	return asOf, true
}

func (h *ScreenHandler) respondRows(w http.ResponseWriter, cohort contracts.Cohort, asOf time.Time, rows []contracts.MomentumRow) {
	if rows == nil {
		rows = []contracts.MomentumRow{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"cohort": cohort,
			"as_of":  contracts.FormatDate(asOf),
			"count":  len(rows),
			"rows":   rows,
		},
	})
}

// Helper functions

// cohortVar validates the {cohort} path variable
func cohortVar(r *http.Request) (contracts.Cohort, bool) {
	c := contracts.Cohort(mux.Vars(r)["cohort"])
	return c, c.Valid()
}

// parseLimit reads ?limit= with a default and a hard cap
func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
