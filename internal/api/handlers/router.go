package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/budget-report/internal/api/middleware"
	"github.com/rs/zerolog"
)

// NewRouter wires the report and job endpoints behind the standard middleware.
// metrics may be nil. corsOrigins limits browser access to /api/; none
// allows any origin.
func NewRouter(reports *ReportsHandler, jobsHandler *JobsHandler, metrics http.Handler, log zerolog.Logger, corsOrigins ...string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reports.EnqueueReport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return middleware.RequestID(
		middleware.Logger(log)(
			middleware.Recovery(
				middleware.CORS(corsOrigins...)(mux),
			),
		),
	)
}
