package interfaces

import (
	"context"

	"github.com/ternarybob/fabrica/internal/models"
)

// PipelineResult reports the outcome of one drain invocation
type PipelineResult struct {
	Drained bool   // False when no pending job was available
	JobID   string // Set when a job was selected
	VideoID string // Set when the job completed successfully
	Failed  bool   // True when the selected job terminated as failed
	Error   string // Stage-qualified failure message when Failed
}

// PipelineService drives pending jobs through the generation stages.
// Each call processes at most one job to completion or failure.
type PipelineService interface {
	ProcessNextJob(ctx context.Context) (*PipelineResult, error)
}

// GenerationService accepts and inspects generation jobs
type GenerationService interface {
	Submit(ctx context.Context, ownerID string, request models.GenerationRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	Stats(ctx context.Context) (map[string]int, error)
}

// SchedulerService runs the drain loop and stale-job sweeper
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
	TriggerDrain() error
}
