package importer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MockRepository) {
	t.Helper()
	im, repo := newTestImporter(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(im, logger), repo
}

func waitForJob(t *testing.T, s *Service, jobID string) *Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := s.GetJob(jobID)
		return err == nil && job.Status != JobStatusPending && job.Status != JobStatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	job, err := s.GetJob(jobID)
	require.NoError(t, err)
	return job
}

func TestStartMatch_RunsToCompletion(t *testing.T) {
	s, repo := newTestService(t)
	seedResidents(t, repo)
	imp := createTestImport(t, s.importer)

	jobID, err := s.StartMatch(context.Background(), imp.ID)
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.MatchResult)
	assert.Equal(t, 2, job.MatchResult.Matched)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, "completed", job.Progress.CurrentPhase)
}

func TestStartMatch_FailureIsRecorded(t *testing.T) {
	s, repo := newTestService(t)
	seedResidents(t, repo)
	imp := createTestImport(t, s.importer)
	repo.UpdateRowErr = assert.AnError

	jobID, err := s.StartMatch(context.Background(), imp.ID)
	require.NoError(t, err)

	job := waitForJob(t, s, jobID)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestStartProcess_LockPerImport(t *testing.T) {
	s, repo := newTestService(t)
	seedResidents(t, repo)
	imp := createTestImport(t, s.importer)

	// Hold the lock for the import manually
	require.True(t, s.tryLockImport(imp.ID))
	defer s.unlockImport(imp.ID)

	_, err := s.StartMatch(context.Background(), imp.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestCancelJob(t *testing.T) {
	s, repo := newTestService(t)
	seedResidents(t, repo)
	imp := createTestImport(t, s.importer)

	jobID, err := s.StartMatch(context.Background(), imp.ID)
	require.NoError(t, err)

	// Cancelling after completion is rejected
	waitForJob(t, s, jobID)
	err = s.CancelJob(jobID)
	require.Error(t, err)

	err = s.CancelJob("no-such-job")
	require.Error(t, err)
}

func TestListActiveJobs(t *testing.T) {
	s, repo := newTestService(t)
	seedResidents(t, repo)
	imp := createTestImport(t, s.importer)

	jobID, err := s.StartMatch(context.Background(), imp.ID)
	require.NoError(t, err)
	waitForJob(t, s, jobID)

	assert.Empty(t, s.ListActiveJobs())
}
