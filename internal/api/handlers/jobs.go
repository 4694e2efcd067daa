package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/application/importer"
)

// JobsHandler handles background job HTTP requests.
type JobsHandler struct {
	*Base
	jobs *importer.Service
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs *importer.Service) *JobsHandler {
	return &JobsHandler{
		Base: &Base{},
		jobs: jobs,
	}
}

// Get handles GET /api/jobs/{id} - returns the status of a job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// ListActive handles GET /api/jobs - lists running jobs.
func (h *JobsHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.ListActiveJobs()

	response := dto.ActiveJobsResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Cancel handles DELETE /api/jobs/{id} - cancels a running job.
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.jobs.CancelJob(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "job cancelled"})
}

// toJobResponse converts a service job to an API response.
func toJobResponse(job *importer.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		ImportID:  job.ImportID,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		StartedAt: job.StartedAt.Format(time.RFC3339),
		Progress: dto.JobProgressResponse{
			CurrentPhase: job.Progress.CurrentPhase,
			LastUpdate:   job.Progress.LastUpdate.Format(time.RFC3339),
		},
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.MatchResult != nil {
		response.MatchResult = &dto.MatchSummaryResponse{
			TotalRows: job.MatchResult.TotalRows,
			Matched:   job.MatchResult.Matched,
			Unmatched: job.MatchResult.Unmatched,
		}
	}

	if job.ProcessResult != nil {
		response.ProcessResult = &dto.ProcessResultResponse{
			Created:    job.ProcessResult.Created,
			Duplicates: job.ProcessResult.Duplicates,
			Skipped:    job.ProcessResult.Skipped,
			Errors:     job.ProcessResult.Errors,
		}
	}

	if job.Error != "" {
		errMsg := job.Error
		response.Error = &errMsg
	}

	return response
}
