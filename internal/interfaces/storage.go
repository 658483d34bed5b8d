package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/fabrica/internal/models"
)

// ErrJobNotFound is returned when a job ID does not exist in storage
var ErrJobNotFound = errors.New("job not found")

// ErrJobNotClaimable is returned when a conditional pending->processing
// transition fails because the job is no longer pending
var ErrJobNotClaimable = errors.New("job not claimable")

// ErrVideoNotFound is returned when a video ID does not exist in storage
var ErrVideoNotFound = errors.New("video not found")

// JobListOptions controls filtering and paging for job queries
type JobListOptions struct {
	Status string
	Limit  int
	Offset int
}

// JobStorage provides durable CRUD over generation jobs plus the two query
// shapes the pipeline depends on: pending jobs in creation order, and stale
// processing jobs for reclaim.
type JobStorage interface {
	// CreateJob inserts a new job. Fails only on storage-layer errors.
	CreateJob(ctx context.Context, job *models.Job) error

	// GetJob returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// UpdateJob writes the job unconditionally, refreshing UpdatedAt.
	UpdateJob(ctx context.Context, job *models.Job) error

	// ListPendingJobs returns pending jobs ascending by CreatedAt (oldest
	// first). Defines queue fairness.
	ListPendingJobs(ctx context.Context) ([]*models.Job, error)

	// ClaimJob transitions a job from pending to processing. Returns
	// ErrJobNotClaimable if the job is not pending at claim time, so that
	// at most one worker holds an active attempt on a job.
	ClaimJob(ctx context.Context, jobID string) (*models.Job, error)

	// UpdateJobHeartbeat refreshes LastHeartbeat on a processing job.
	UpdateJobHeartbeat(ctx context.Context, jobID string) error

	// ListStaleJobs returns processing jobs whose heartbeat is older than
	// the threshold.
	ListStaleJobs(ctx context.Context, staleAfter time.Duration) ([]*models.Job, error)

	// ListJobs returns jobs filtered and paged per opts, newest first.
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)

	// DeleteJob removes a job. Administrative; never called by the pipeline.
	DeleteJob(ctx context.Context, jobID string) error

	// CountJobsByStatus returns the number of jobs in the given status.
	CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error)
}

// VideoStorage provides durable CRUD over generated video artifacts
type VideoStorage interface {
	// SaveVideo upserts a video record.
	SaveVideo(ctx context.Context, video *models.Video) error

	// GetVideo returns ErrVideoNotFound if the video does not exist.
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)

	// GetVideoByJobID returns the video produced by the given job, or
	// ErrVideoNotFound.
	GetVideoByJobID(ctx context.Context, jobID string) (*models.Video, error)

	// ListVideos returns videos newest first, up to limit (0 = no limit).
	ListVideos(ctx context.Context, limit int) ([]*models.Video, error)

	// DeleteVideo removes a video record.
	DeleteVideo(ctx context.Context, videoID string) error

	// CountVideos returns the number of stored videos.
	CountVideos(ctx context.Context) (int, error)
}

// StorageManager owns the typed stores over a single database connection
type StorageManager interface {
	JobStorage() JobStorage
	VideoStorage() VideoStorage
	Close() error
}
