// -----------------------------------------------------------------------
// Generation Job - persisted lifecycle record for the content pipeline
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a generation job.
// Transitions are forward-only: pending -> processing -> {completed, failed}.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Stage identifies one ordered step of the generation pipeline
type Stage string

const (
	StageScript    Stage = "script"
	StageAudio     Stage = "audio"
	StageVideo     Stage = "video"
	StageSubtitles Stage = "subtitles"
	StagePersist   Stage = "persist"
)

// GenerationRequest is the immutable payload captured at submission time
type GenerationRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Script      string `json:"script,omitempty"`   // Optional pre-supplied narration; skips the script stage
	Style       string `json:"style,omitempty"`    // Optional style hint for script synthesis
	Duration    int    `json:"duration,omitempty"` // Target duration in seconds
}

// JobResult references the artifact produced by a successful run
type JobResult struct {
	VideoID string `json:"video_id"`
}

// StageResult records the outcome of a single pipeline stage.
// Retained on the job for observability; Job.Status remains the single
// source of truth for whether the job is done.
type StageResult struct {
	Stage       Stage      `json:"stage"`
	Status      JobStatus  `json:"status"`
	Message     string     `json:"message,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Job is one tracked request to produce a generated media artifact.
// Created by the submission service, mutated only by the pipeline.
type Job struct {
	ID      string            `json:"id" badgerhold:"key"`
	OwnerID string            `json:"owner_id"`
	Request GenerationRequest `json:"request"`

	Status JobStatus     `json:"status"`
	Result *JobResult    `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	Stages []StageResult `json:"stages,omitempty"`

	CreatedAt     time.Time  `json:"created_at"` // Immutable; defines queue order
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// NewJob creates a pending job for the given owner and request
func NewJob(id, ownerID string, request GenerationRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		OwnerID:   ownerID,
		Request:   request,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks structural integrity of the job record
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.Request.Title == "" {
		return fmt.Errorf("job title is required")
	}
	if j.Request.Description == "" {
		return fmt.Errorf("job description is required")
	}
	return nil
}

// MarkProcessing transitions the job to processing
func (j *Job) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.LastHeartbeat = &now
	j.UpdatedAt = now
}

// MarkCompleted transitions the job to completed with the produced artifact
func (j *Job) MarkCompleted(videoID string) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Result = &JobResult{VideoID: videoID}
	j.Error = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed transitions the job to failed with a stage-qualified message
func (j *Job) MarkFailed(errorMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = errorMsg
	j.Result = nil
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// RecordStage appends a per-stage outcome to the job history
func (j *Job) RecordStage(stage Stage, status JobStatus, message string) {
	now := time.Now()
	j.Stages = append(j.Stages, StageResult{
		Stage:       stage,
		Status:      status,
		Message:     message,
		CompletedAt: &now,
	})
	j.UpdatedAt = now
}

// UpdateHeartbeat refreshes the last heartbeat timestamp
func (j *Job) UpdateHeartbeat() {
	now := time.Now()
	j.LastHeartbeat = &now
	j.UpdatedAt = now
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// HasScript returns true if the request carries a pre-supplied script,
// in which case the script stage uses it verbatim
func (j *Job) HasScript() bool {
	return j.Request.Script != ""
}
