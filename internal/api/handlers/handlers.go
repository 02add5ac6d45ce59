package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/dvloznov/budget-report/internal/api/middleware"
	"github.com/dvloznov/budget-report/internal/jobs"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/rs/zerolog"
)

// maxRetriesLimit caps client-requested retries.
const maxRetriesLimit = 5

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		publisher: publisher,
		log:       log,
	}
}

// EnqueueReport handles POST /api/reports
func (h *ReportsHandler) EnqueueReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient  string `json:"recipient"`
		MaxRetries int    `json:"max_retries"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		middleware.WriteError(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if addr, err := mail.ParseAddress(recipient); err != nil || addr.Address != recipient {
		middleware.WriteError(w, http.StatusBadRequest, "recipient must be an email address")
		return
	}
	if req.MaxRetries < 0 || req.MaxRetries > maxRetriesLimit {
		middleware.WriteError(w, http.StatusBadRequest, "max_retries must be between 0 and "+strconv.Itoa(maxRetriesLimit))
		return
	}

	job := &jobs.ReportJob{
		Recipient:  report.Recipient(recipient),
		MaxRetries: req.MaxRetries,
	}

	if err := h.publisher.PublishReport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("recipient", recipient).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue report job")
		return
	}

	middleware.TagJob(r.Context(), job.JobID)
	h.log.Info().
		Str("job_id", job.JobID).
		Str("recipient", recipient).
		Msg("Report job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()
	middleware.TagJob(ctx, jobID)

	job, err := h.store.GetJob(ctx, jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Recipient: report.Recipient(query.Get("recipient")),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
