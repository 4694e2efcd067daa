package dto

import (
	"encoding/json"
	"time"

	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthResponse creates a healthy response.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}
}

// ListResponse wraps a paginated collection.
type ListResponse struct {
	Items      any `json:"items"`
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// JobStartedResponse is returned when a background job is accepted.
type JobStartedResponse struct {
	JobID string `json:"job_id"`
}

// CountResponse reports how many records an operation touched.
type CountResponse struct {
	Updated int `json:"updated"`
}

// MessageResponse is a simple confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// RowResponse is an import row with its match candidates expanded.
type RowResponse struct {
	*storage.ImportRow
	Candidates json.RawMessage `json:"candidates,omitempty"`
}

// NewRowResponse wraps a storage row, surfacing the stored candidate list.
func NewRowResponse(row *storage.ImportRow) RowResponse {
	resp := RowResponse{ImportRow: row}
	if row.CandidatesJSON != "" {
		resp.Candidates = json.RawMessage(row.CandidatesJSON)
	}
	return resp
}

// MatchSummaryResponse reports the outcome of a matching pass.
type MatchSummaryResponse struct {
	TotalRows int `json:"total_rows"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// ProcessResultResponse reports the outcome of payment creation.
type ProcessResultResponse struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// JobProgressResponse reports where a background job currently is.
type JobProgressResponse struct {
	CurrentPhase string `json:"current_phase"`
	LastUpdate   string `json:"last_update"`
}

// JobResponse is the status of a background import job.
type JobResponse struct {
	JobID         string                 `json:"job_id"`
	ImportID      string                 `json:"import_id"`
	Kind          string                 `json:"kind"`
	Status        string                 `json:"status"`
	StartedAt     string                 `json:"started_at"`
	CompletedAt   *string                `json:"completed_at,omitempty"`
	Progress      JobProgressResponse    `json:"progress"`
	MatchResult   *MatchSummaryResponse  `json:"match_result,omitempty"`
	ProcessResult *ProcessResultResponse `json:"process_result,omitempty"`
	Error         *string                `json:"error,omitempty"`
}

// ActiveJobsResponse lists currently running jobs.
type ActiveJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}
