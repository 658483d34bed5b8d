package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
)

// ErrInvalidRequest is returned when a submission fails validation.
// Validation failures never reach storage.
var ErrInvalidRequest = errors.New("invalid generation request")

// Service accepts generation requests and exposes the job inspection
// surface. It never invokes the pipeline directly; the scheduler drains
// queued jobs independently.
type Service struct {
	jobStorage interfaces.JobStorage
	validate   *validator.Validate
	logger     arbor.ILogger
}

// NewService creates a generation service
func NewService(jobStorage interfaces.JobStorage, logger arbor.ILogger) *Service {
	return &Service{
		jobStorage: jobStorage,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Submit validates the request and queues a pending job, returning its ID.
// The call returns as soon as the job is durable; generation happens later.
func (s *Service) Submit(ctx context.Context, ownerID string, request models.GenerationRequest) (string, error) {
	if err := s.validate.Struct(request); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	job := models.NewJob(common.NewJobID(), ownerID, request)
	if err := s.jobStorage.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", ownerID).
		Str("title", request.Title).
		Msg("Generation job queued")

	return job.ID, nil
}

// GetJob returns a job by ID
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobStorage.GetJob(ctx, jobID)
}

// ListJobs returns jobs filtered and paged per opts, newest first
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.jobStorage.ListJobs(ctx, opts)
}

// DeleteJob removes a job. Administrative; the pipeline never deletes.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.jobStorage.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	s.logger.Info().
		Str("job_id", jobID).
		Msg("Job deleted")
	return nil
}

// Stats returns job counts per status
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusProcessing,
		models.JobStatusCompleted,
		models.JobStatusFailed,
	} {
		count, err := s.jobStorage.CountJobsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", status, err)
		}
		stats[string(status)] = count
	}
	return stats, nil
}
