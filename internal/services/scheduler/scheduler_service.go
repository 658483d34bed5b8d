package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/common"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
)

// Service drives the pipeline on a cron schedule and reclaims stale jobs.
// Implements interfaces.SchedulerService.
type Service struct {
	pipeline   interfaces.PipelineService
	jobStorage interfaces.JobStorage
	config     *common.PipelineConfig
	cron       *cron.Cron
	logger     arbor.ILogger

	mu           sync.Mutex // Protects isProcessing
	isProcessing bool
	running      bool
	cronID       cron.EntryID
	staleTicker  *time.Ticker
	staleDone    chan struct{}
}

// NewService creates a scheduler service
func NewService(pipeline interfaces.PipelineService, jobStorage interfaces.JobStorage, config *common.PipelineConfig, logger arbor.ILogger) *Service {
	return &Service{
		pipeline:   pipeline,
		jobStorage: jobStorage,
		config:     config,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start registers the drain job and launches the stale-job sweeper
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "*/1 * * * *" // Default: every 1 minute
	}

	id, err := s.cron.AddFunc(schedule, s.runDrainCycle)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cronID = id

	s.cron.Start()
	s.running = true

	sweepInterval, err := s.config.SweepIntervalDuration()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Falling back to default sweep interval")
		sweepInterval = 5 * time.Minute
	}
	s.staleTicker = time.NewTicker(sweepInterval)
	s.staleDone = make(chan struct{})
	go s.staleSweepLoop()

	s.logger.Info().
		Str("schedule", schedule).
		Dur("sweep_interval", sweepInterval).
		Msg("Pipeline scheduler started")

	return nil
}

// Stop halts the drain schedule and the sweeper
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	s.cron.Remove(s.cronID)
	s.cron.Stop()

	if s.staleTicker != nil {
		s.staleTicker.Stop()
		close(s.staleDone)
	}

	s.running = false
	s.logger.Info().Msg("Pipeline scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduler is active
func (s *Service) IsRunning() bool {
	return s.running
}

// TriggerDrain runs one drain cycle immediately, outside the schedule
func (s *Service) TriggerDrain() error {
	if !s.running {
		return fmt.Errorf("scheduler not running")
	}
	go s.runDrainCycle()
	return nil
}

// runDrainCycle processes pending jobs until the queue is empty. Overlapping
// ticks skip instead of stacking.
func (s *Service) runDrainCycle() {
	// Panic recovery to prevent service crash
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in drain cycle")
		}
	}()

	s.mu.Lock()
	if s.isProcessing {
		s.logger.Debug().Msg("Drain cycle already in progress, skipping this tick")
		s.mu.Unlock()
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	processed := 0

	for {
		result, err := s.pipeline.ProcessNextJob(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Drain cycle aborted on storage error")
			return
		}
		if !result.Drained {
			break
		}
		processed++

		if result.Failed {
			s.logger.Warn().
				Str("job_id", result.JobID).
				Str("error", result.Error).
				Msg("Job finished failed")
		} else {
			s.logger.Info().
				Str("job_id", result.JobID).
				Str("video_id", result.VideoID).
				Msg("Job finished completed")
		}
	}

	if processed > 0 {
		s.logger.Info().Int("processed", processed).Msg("Drain cycle complete")
	}
}

// staleSweepLoop periodically reclaims processing jobs whose heartbeat
// stopped, returning them to the queue
func (s *Service) staleSweepLoop() {
	for {
		select {
		case <-s.staleDone:
			return
		case <-s.staleTicker.C:
			if err := s.reclaimStaleJobs(); err != nil {
				s.logger.Error().Err(err).Msg("Stale job sweep failed")
			}
		}
	}
}

// reclaimStaleJobs returns crashed-worker jobs to pending so a later drain
// picks them up again
func (s *Service) reclaimStaleJobs() error {
	ctx := context.Background()
	staleAfter, err := s.config.StaleAfterDuration()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Falling back to default stale threshold")
		staleAfter = 15 * time.Minute
	}

	staleJobs, err := s.jobStorage.ListStaleJobs(ctx, staleAfter)
	if err != nil {
		return fmt.Errorf("failed to list stale jobs: %w", err)
	}
	if len(staleJobs) == 0 {
		return nil
	}

	s.logger.Warn().
		Int("count", len(staleJobs)).
		Dur("stale_after", staleAfter).
		Msg("Reclaiming stale processing jobs")

	for _, job := range staleJobs {
		job.Status = models.JobStatusPending
		job.StartedAt = nil
		job.LastHeartbeat = nil
		if err := s.jobStorage.UpdateJob(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to reclaim stale job")
			continue
		}
		s.logger.Info().Str("job_id", job.ID).Msg("Stale job returned to queue")
	}

	return nil
}
