package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
	"github.com/ternarybob/fabrica/internal/services/generation"
)

// JobHandler handles generation job API requests
type JobHandler struct {
	service interfaces.GenerationService
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(service interfaces.GenerationService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

// submitRequest is the POST /api/jobs payload
type submitRequest struct {
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Script      string `json:"script,omitempty"`
	Style       string `json:"style,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

// SubmitJobHandler queues a generation job
// POST /api/jobs
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	jobID, err := h.service.Submit(r.Context(), req.OwnerID, models.GenerationRequest{
		Title:       req.Title,
		Description: req.Description,
		Script:      req.Script,
		Style:       req.Style,
		Duration:    req.Duration,
	})
	if err != nil {
		if errors.Is(err, generation.ErrInvalidRequest) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to queue job")
		WriteError(w, http.StatusInternalServerError, "Failed to queue job")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"job_id": jobID,
	})
}

// ListJobsHandler returns jobs, newest first
// GET /api/jobs?status=pending&limit=50&offset=0
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	opts := &interfaces.JobListOptions{
		Status: r.URL.Query().Get("status"),
		Limit:  GetIntParam(r, "limit", 50),
		Offset: GetIntParam(r, "offset", 0),
	}

	jobs, err := h.service.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetJobHandler returns a single job by ID
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DeleteJobHandler removes a job
// DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	WriteSuccess(w, "Job deleted")
}

// GetJobStatsHandler returns job counts per status
// GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to get job stats")
		WriteError(w, http.StatusInternalServerError, "Failed to get job stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
