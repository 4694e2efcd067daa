package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobKind is what an import job does.
type JobKind string

const (
	JobKindMatch   JobKind = "match"
	JobKindProcess JobKind = "process"
)

// JobProgress holds real-time progress information.
type JobProgress struct {
	CurrentPhase string    `json:"current_phase"`
	LastUpdate   time.Time `json:"last_update"`
}

// Job represents a running or completed import job.
type Job struct {
	ID            string          `json:"id"`
	ImportID      string          `json:"import_id"`
	Kind          JobKind         `json:"kind"`
	Status        JobStatus       `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Progress      JobProgress     `json:"progress"`
	MatchResult   *MatchSummary   `json:"match_result,omitempty"`
	ProcessResult *ProcessResult  `json:"process_result,omitempty"`
	Error         string          `json:"error,omitempty"`
	cancelFunc    context.CancelFunc
}

// Service runs matching and processing as background jobs so uploads of large
// statements do not hold an HTTP request open.
type Service struct {
	importer *Importer
	logger   *slog.Logger

	// Job management
	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	// Import-level locking (only one job per import at a time)
	importLocks map[string]bool
	locksMutex  sync.Mutex
}

// NewService creates an import job service.
func NewService(imp *Importer, logger *slog.Logger) *Service {
	return &Service{
		importer:    imp,
		logger:      logger,
		jobs:        make(map[string]*Job),
		importLocks: make(map[string]bool),
	}
}

// StartMatch starts row matching for an import in the background.
// Note: The passed context is NOT used as the parent for the background job.
// Jobs run on context.Background() so they survive the HTTP request; use
// CancelJob to stop one.
func (s *Service) StartMatch(_ context.Context, importID string) (string, error) {
	return s.startJob(importID, JobKindMatch, ProcessOptions{})
}

// StartProcess starts payment creation for an import in the background.
func (s *Service) StartProcess(_ context.Context, importID string, opts ProcessOptions) (string, error) {
	return s.startJob(importID, JobKindProcess, opts)
}

func (s *Service) startJob(importID string, kind JobKind, opts ProcessOptions) (string, error) {
	if !s.tryLockImport(importID) {
		return "", fmt.Errorf("a job is already running for import %s", importID)
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &Job{
		ID:         jobID,
		ImportID:   importID,
		Kind:       kind,
		Status:     JobStatusPending,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
		Progress:   JobProgress{CurrentPhase: "pending", LastUpdate: time.Now()},
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job, opts)

	s.logger.Info("import job started", "job_id", jobID, "import_id", importID, "kind", kind)
	return jobID, nil
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(jobID string) (*Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListActiveJobs returns all running or pending jobs.
func (s *Service) ListActiveJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*Job
	for _, job := range s.jobs {
		if job.Status == JobStatusPending || job.Status == JobStatusRunning {
			active = append(active, job)
		}
	}
	return active
}

// CancelJob cancels a running job.
func (s *Service) CancelJob(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = JobStatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.Progress.CurrentPhase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("import job cancelled", "job_id", jobID)
	return nil
}

func (s *Service) runJob(ctx context.Context, job *Job, opts ProcessOptions) {
	defer s.unlockImport(job.ImportID)

	phase := "matching_rows"
	if job.Kind == JobKindProcess {
		phase = "creating_payments"
	}
	s.updateJob(job.ID, func(j *Job) {
		j.Status = JobStatusRunning
		j.Progress = JobProgress{CurrentPhase: phase, LastUpdate: time.Now()}
	})

	var err error
	var matchResult *MatchSummary
	var processResult *ProcessResult
	switch job.Kind {
	case JobKindMatch:
		matchResult, err = s.importer.MatchRows(ctx, job.ImportID)
	case JobKindProcess:
		processResult, err = s.importer.ProcessImport(ctx, job.ImportID, opts)
	default:
		err = fmt.Errorf("unknown job kind: %s", job.Kind)
	}

	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelJob
			return
		}
		now := time.Now()
		s.updateJob(job.ID, func(j *Job) {
			j.Status = JobStatusFailed
			j.Error = err.Error()
			j.CompletedAt = &now
			j.Progress = JobProgress{CurrentPhase: "failed", LastUpdate: now}
		})
		s.logger.Error("import job failed", "job_id", job.ID, "error", err)
		return
	}

	now := time.Now()
	s.updateJob(job.ID, func(j *Job) {
		j.Status = JobStatusCompleted
		j.MatchResult = matchResult
		j.ProcessResult = processResult
		j.CompletedAt = &now
		j.Progress = JobProgress{CurrentPhase: "completed", LastUpdate: now}
	})
	s.logger.Info("import job completed", "job_id", job.ID, "kind", job.Kind)
}

func (s *Service) updateJob(jobID string, fn func(*Job)) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		fn(job)
	}
}

func (s *Service) tryLockImport(importID string) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()
	if s.importLocks[importID] {
		return false
	}
	s.importLocks[importID] = true
	return true
}

func (s *Service) unlockImport(importID string) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()
	delete(s.importLocks, importID)
}
