package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mhan/momo/internal/api/handlers"
	"github.com/mhan/momo/internal/runfeed"
	"github.com/mhan/momo/pkg/logger"
	"github.com/mhan/momo/pkg/metrics"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing configuration lives in this function only
func NewRouter(
	screen *handlers.ScreenHandler,
	runs *handlers.RunsHandler,
	reports *handlers.ReportsHandler,
	feed *runfeed.Hub,
	m *metrics.Metrics,
	siteDir string,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/universe/{cohort}", screen.GetUniverse).Methods("GET")
	api.HandleFunc("/universe/{cohort}/changes", screen.GetChanges).Methods("GET")
	api.HandleFunc("/rankings/{cohort}", screen.GetRankings).Methods("GET")
	api.HandleFunc("/picks/{cohort}", screen.GetPicks).Methods("GET")
	api.HandleFunc("/reports", reports.List).Methods("GET")
	api.HandleFunc("/reports/{date}", reports.Get).Methods("GET")
	api.HandleFunc("/runs", runs.GetRuns).Methods("GET")

	// Live job-run feed
	if feed != nil {
		r.HandleFunc("/ws/runs", feed.ServeWS).Methods("GET")
	}

	// The generated site: index.html plus the dated reports it links
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(siteDir))).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log, m))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "momo-api",
	})
}

// loggingMiddleware logs HTTP requests and records their durations
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			elapsed := time.Since(start)

			// The route template keeps the metric label bounded
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.ObserveRequest(r.Method, route, elapsed)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": elapsed,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
