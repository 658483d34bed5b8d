package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
)

// Orchestrator drives pending jobs through the generation stages. Each
// ProcessNextJob call drains at most one job to completion or failure.
type Orchestrator struct {
	jobStorage   interfaces.JobStorage
	videoStorage interfaces.VideoStorage
	script       interfaces.ScriptProvider
	speech       interfaces.SpeechProvider
	render       interfaces.RenderProvider
	subtitles    interfaces.SubtitleProvider
	stageTimeout time.Duration
	logger       arbor.ILogger
}

// NewOrchestrator creates a pipeline orchestrator with explicit dependencies
func NewOrchestrator(
	jobStorage interfaces.JobStorage,
	videoStorage interfaces.VideoStorage,
	script interfaces.ScriptProvider,
	speech interfaces.SpeechProvider,
	render interfaces.RenderProvider,
	subtitles interfaces.SubtitleProvider,
	stageTimeout time.Duration,
	logger arbor.ILogger,
) *Orchestrator {
	if stageTimeout <= 0 {
		stageTimeout = 5 * time.Minute
	}
	return &Orchestrator{
		jobStorage:   jobStorage,
		videoStorage: videoStorage,
		script:       script,
		speech:       speech,
		render:       render,
		subtitles:    subtitles,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// ProcessNextJob claims the oldest pending job and runs it through the
// stages sequentially. An empty queue is not an error. A job that fails a
// stage is finalized as failed and reported in the result, not as an error.
func (o *Orchestrator) ProcessNextJob(ctx context.Context) (*interfaces.PipelineResult, error) {
	pending, err := o.jobStorage.ListPendingJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return &interfaces.PipelineResult{Drained: false}, nil
	}

	// Claim in queue order. A job claimed by another instance, or deleted
	// by an administrator, between the list and the claim is skipped, not
	// an error.
	var job *models.Job
	for _, candidate := range pending {
		claimed, err := o.jobStorage.ClaimJob(ctx, candidate.ID)
		if err != nil {
			if errors.Is(err, interfaces.ErrJobNotClaimable) || errors.Is(err, interfaces.ErrJobNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to claim job %s: %w", candidate.ID, err)
		}
		job = claimed
		break
	}
	if job == nil {
		return &interfaces.PipelineResult{Drained: false}, nil
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("title", job.Request.Title).
		Msg("Processing generation job")

	videoID, err := o.runStages(ctx, job)
	if err != nil {
		return o.finalizeFailed(ctx, job, err)
	}
	return o.finalizeCompleted(ctx, job, videoID)
}

// stageError carries the stage at which the pipeline failed
type stageError struct {
	stage models.Stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// runStages executes the stages in order, recording each outcome on
// the job as it lands. Returns the persisted video ID on success.
func (o *Orchestrator) runStages(ctx context.Context, job *models.Job) (string, error) {
	script, err := o.runScriptStage(ctx, job)
	if err != nil {
		return "", &stageError{stage: models.StageScript, err: err}
	}
	o.recordStage(ctx, job, models.StageScript, "")

	audioURL, err := o.runSpeechStage(ctx, script)
	if err != nil {
		return "", &stageError{stage: models.StageAudio, err: err}
	}
	o.recordStage(ctx, job, models.StageAudio, audioURL)

	rendered, err := o.runRenderStage(ctx, job, audioURL)
	if err != nil {
		return "", &stageError{stage: models.StageVideo, err: err}
	}
	o.recordStage(ctx, job, models.StageVideo, rendered.VideoURL)

	subtitlesURL, err := o.runSubtitleStage(ctx, audioURL)
	if err != nil {
		return "", &stageError{stage: models.StageSubtitles, err: err}
	}
	o.recordStage(ctx, job, models.StageSubtitles, subtitlesURL)

	videoID, err := o.persistVideo(ctx, job, script, rendered, subtitlesURL)
	if err != nil {
		return "", &stageError{stage: models.StagePersist, err: err}
	}
	o.recordStage(ctx, job, models.StagePersist, videoID)

	return videoID, nil
}

// runScriptStage resolves the narration script. A pre-supplied script is
// used verbatim and the provider is not invoked.
func (o *Orchestrator) runScriptStage(ctx context.Context, job *models.Job) (string, error) {
	if job.HasScript() {
		o.logger.Debug().
			Str("job_id", job.ID).
			Msg("Using pre-supplied script, skipping synthesis")
		return job.Request.Script, nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	script, err := o.script.GenerateScript(stageCtx, interfaces.ScriptRequest{
		Title:       job.Request.Title,
		Description: job.Request.Description,
		Duration:    job.Request.Duration,
		Style:       job.Request.Style,
	})
	if err != nil {
		return "", err
	}
	if script == "" {
		return "", fmt.Errorf("provider returned an empty script")
	}
	return script, nil
}

func (o *Orchestrator) runSpeechStage(ctx context.Context, script string) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.speech.SynthesizeSpeech(stageCtx, script)
}

func (o *Orchestrator) runRenderStage(ctx context.Context, job *models.Job, audioURL string) (*interfaces.RenderResult, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.render.RenderVideo(stageCtx, audioURL, job.Request.Title)
}

func (o *Orchestrator) runSubtitleStage(ctx context.Context, audioURL string) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.subtitles.ExtractSubtitles(stageCtx, audioURL)
}

// persistVideo upserts the finished artifact. Keyed by job so a reclaimed
// job that re-runs persist overwrites rather than duplicates.
func (o *Orchestrator) persistVideo(ctx context.Context, job *models.Job, script string, rendered *interfaces.RenderResult, subtitlesURL string) (string, error) {
	video, err := o.videoStorage.GetVideoByJobID(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrVideoNotFound) {
			return "", fmt.Errorf("failed to query existing video: %w", err)
		}
		video = &models.Video{
			ID:        common.NewVideoID(),
			JobID:     job.ID,
			CreatedAt: time.Now(),
		}
	}

	video.Title = job.Request.Title
	video.Description = job.Request.Description
	video.Duration = job.Request.Duration
	video.VideoURL = rendered.VideoURL
	video.ThumbnailURL = rendered.ThumbnailURL
	video.SubtitlesURL = subtitlesURL
	video.ScriptText = script
	video.Status = models.VideoStatusCompleted
	video.CreatedBy = job.OwnerID

	if err := o.videoStorage.SaveVideo(ctx, video); err != nil {
		return "", fmt.Errorf("failed to save video: %w", err)
	}
	return video.ID, nil
}

// recordStage appends a successful stage outcome and refreshes the
// heartbeat so the stale sweeper leaves the job alone mid-run.
func (o *Orchestrator) recordStage(ctx context.Context, job *models.Job, stage models.Stage, message string) {
	job.RecordStage(stage, models.JobStatusCompleted, message)
	job.UpdateHeartbeat()
	if err := o.jobStorage.UpdateJob(ctx, job); err != nil {
		o.logger.Warn().
			Str("job_id", job.ID).
			Str("stage", string(stage)).
			Err(err).
			Msg("Failed to persist stage result")
	}
}

func (o *Orchestrator) finalizeFailed(ctx context.Context, job *models.Job, stageErr error) (*interfaces.PipelineResult, error) {
	var se *stageError
	if errors.As(stageErr, &se) {
		job.RecordStage(se.stage, models.JobStatusFailed, se.err.Error())
	}
	job.MarkFailed(stageErr.Error())

	if err := o.jobStorage.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to finalize job %s: %w", job.ID, err)
	}

	o.logger.Warn().
		Str("job_id", job.ID).
		Str("error", job.Error).
		Msg("Generation job failed")

	return &interfaces.PipelineResult{
		Drained: true,
		JobID:   job.ID,
		Failed:  true,
		Error:   job.Error,
	}, nil
}

func (o *Orchestrator) finalizeCompleted(ctx context.Context, job *models.Job, videoID string) (*interfaces.PipelineResult, error) {
	job.MarkCompleted(videoID)

	if err := o.jobStorage.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to finalize job %s: %w", job.ID, err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("video_id", videoID).
		Msg("Generation job completed")

	return &interfaces.PipelineResult{
		Drained: true,
		JobID:   job.ID,
		VideoID: videoID,
	}, nil
}
