package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
)

// Mock implementations

// mockJobStorage implements interfaces.JobStorage over a map
type mockJobStorage struct {
	jobs        map[string]*models.Job
	listErr     error
	unclaimable map[string]bool
	deleted     map[string]bool
}

func newMockJobStorage() *mockJobStorage {
	return &mockJobStorage{jobs: make(map[string]*models.Job)}
}

func (m *mockJobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

func (m *mockJobStorage) UpdateJob(ctx context.Context, job *models.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStorage) ListPendingJobs(ctx context.Context) ([]*models.Job, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var pending []*models.Job
	for _, job := range m.jobs {
		if job.Status == models.JobStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending, nil
}

func (m *mockJobStorage) ClaimJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok || m.deleted[jobID] {
		return nil, interfaces.ErrJobNotFound
	}
	if m.unclaimable[jobID] || job.Status != models.JobStatusPending {
		return nil, interfaces.ErrJobNotClaimable
	}
	job.MarkProcessing()
	return job, nil
}

func (m *mockJobStorage) UpdateJobHeartbeat(ctx context.Context, jobID string) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.UpdateHeartbeat()
	return nil
}

func (m *mockJobStorage) ListStaleJobs(ctx context.Context, staleAfter time.Duration) ([]*models.Job, error) {
	return nil, nil
}

func (m *mockJobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	var jobs []*models.Job
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *mockJobStorage) DeleteJob(ctx context.Context, jobID string) error {
	delete(m.jobs, jobID)
	return nil
}

func (m *mockJobStorage) CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count := 0
	for _, job := range m.jobs {
		if job.Status == status {
			count++
		}
	}
	return count, nil
}

// mockVideoStorage implements interfaces.VideoStorage over a map
type mockVideoStorage struct {
	videos map[string]*models.Video
}

func newMockVideoStorage() *mockVideoStorage {
	return &mockVideoStorage{videos: make(map[string]*models.Video)}
}

func (m *mockVideoStorage) SaveVideo(ctx context.Context, video *models.Video) error {
	m.videos[video.ID] = video
	return nil
}

func (m *mockVideoStorage) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	video, ok := m.videos[videoID]
	if !ok {
		return nil, interfaces.ErrVideoNotFound
	}
	return video, nil
}

func (m *mockVideoStorage) GetVideoByJobID(ctx context.Context, jobID string) (*models.Video, error) {
	for _, video := range m.videos {
		if video.JobID == jobID {
			return video, nil
		}
	}
	return nil, interfaces.ErrVideoNotFound
}

func (m *mockVideoStorage) ListVideos(ctx context.Context, limit int) ([]*models.Video, error) {
	var videos []*models.Video
	for _, video := range m.videos {
		videos = append(videos, video)
	}
	return videos, nil
}

func (m *mockVideoStorage) DeleteVideo(ctx context.Context, videoID string) error {
	delete(m.videos, videoID)
	return nil
}

func (m *mockVideoStorage) CountVideos(ctx context.Context) (int, error) {
	return len(m.videos), nil
}

// Mock providers

type mockScriptProvider struct {
	script string
	err    error
	calls  int
}

func (m *mockScriptProvider) GenerateScript(ctx context.Context, req interfaces.ScriptRequest) (string, error) {
	m.calls++
	return m.script, m.err
}

type mockSpeechProvider struct {
	audioURL string
	err      error
	calls    int
	received string
}

func (m *mockSpeechProvider) SynthesizeSpeech(ctx context.Context, script string) (string, error) {
	m.calls++
	m.received = script
	return m.audioURL, m.err
}

type mockRenderProvider struct {
	result *interfaces.RenderResult
	err    error
	calls  int
}

func (m *mockRenderProvider) RenderVideo(ctx context.Context, audioURL, title string) (*interfaces.RenderResult, error) {
	m.calls++
	return m.result, m.err
}

type mockSubtitleProvider struct {
	subtitlesURL string
	err          error
	calls        int
}

func (m *mockSubtitleProvider) ExtractSubtitles(ctx context.Context, audioURL string) (string, error) {
	m.calls++
	return m.subtitlesURL, m.err
}

type fixture struct {
	jobs      *mockJobStorage
	videos    *mockVideoStorage
	script    *mockScriptProvider
	speech    *mockSpeechProvider
	render    *mockRenderProvider
	subtitles *mockSubtitleProvider
	orch      *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		jobs:      newMockJobStorage(),
		videos:    newMockVideoStorage(),
		script:    &mockScriptProvider{script: "Generated narration."},
		speech:    &mockSpeechProvider{audioURL: "https://cdn.example.com/audio/a.mp3"},
		render:    &mockRenderProvider{result: &interfaces.RenderResult{VideoURL: "https://cdn.example.com/video/v.mp4", ThumbnailURL: "https://cdn.example.com/thumb/t.jpg"}},
		subtitles: &mockSubtitleProvider{subtitlesURL: "https://cdn.example.com/subs/s.vtt"},
	}
	f.orch = NewOrchestrator(f.jobs, f.videos, f.script, f.speech, f.render, f.subtitles, time.Minute, arbor.NewLogger())
	return f
}

func (f *fixture) addJob(id string, createdAt time.Time, request models.GenerationRequest) *models.Job {
	job := models.NewJob(id, "user_1", request)
	job.CreatedAt = createdAt
	f.jobs.jobs[id] = job
	return job
}

func TestProcessNextJob_EmptyQueue(t *testing.T) {
	f := newFixture()

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if result.Drained {
		t.Error("expected Drained=false for empty queue")
	}
	if f.script.calls != 0 {
		t.Error("no provider should be called on empty queue")
	}
}

func TestProcessNextJob_CompletesJob(t *testing.T) {
	f := newFixture()
	job := f.addJob("job_1", time.Now(), models.GenerationRequest{
		Title:       "Intro to Go",
		Description: "A short introduction",
		Duration:    120,
	})

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if !result.Drained {
		t.Fatal("expected a job to be drained")
	}
	if result.JobID != "job_1" {
		t.Errorf("unexpected job ID: %s", result.JobID)
	}
	if result.Failed {
		t.Fatalf("job failed unexpectedly: %s", result.Error)
	}

	if job.Status != models.JobStatusCompleted {
		t.Errorf("expected completed status, got %s", job.Status)
	}
	if job.Result == nil || job.Result.VideoID != result.VideoID {
		t.Error("job result does not reference the produced video")
	}
	if job.Error != "" {
		t.Errorf("completed job should have no error, got %q", job.Error)
	}

	video, err := f.videos.GetVideo(context.Background(), result.VideoID)
	if err != nil {
		t.Fatalf("video not persisted: %v", err)
	}
	if video.JobID != "job_1" {
		t.Errorf("video not linked to job: %s", video.JobID)
	}
	if video.ScriptText != "Generated narration." {
		t.Errorf("unexpected script text: %q", video.ScriptText)
	}
	if video.VideoURL != "https://cdn.example.com/video/v.mp4" {
		t.Errorf("unexpected video URL: %s", video.VideoURL)
	}
	if video.SubtitlesURL != "https://cdn.example.com/subs/s.vtt" {
		t.Errorf("unexpected subtitles URL: %s", video.SubtitlesURL)
	}
	if video.Status != models.VideoStatusCompleted {
		t.Errorf("unexpected video status: %s", video.Status)
	}

	// All five stages recorded
	if len(job.Stages) != 5 {
		t.Fatalf("expected 5 stage results, got %d", len(job.Stages))
	}
	for _, stage := range job.Stages {
		if stage.Status != models.JobStatusCompleted {
			t.Errorf("stage %s not completed: %s", stage.Stage, stage.Status)
		}
	}
}

func TestProcessNextJob_OldestFirst(t *testing.T) {
	f := newFixture()
	base := time.Now()
	f.addJob("job_newer", base.Add(time.Minute), models.GenerationRequest{Title: "B", Description: "b"})
	f.addJob("job_older", base, models.GenerationRequest{Title: "A", Description: "a"})

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if result.JobID != "job_older" {
		t.Errorf("expected oldest job first, got %s", result.JobID)
	}
}

func TestProcessNextJob_SuppliedScriptSkipsSynthesis(t *testing.T) {
	f := newFixture()
	f.addJob("job_1", time.Now(), models.GenerationRequest{
		Title:       "Prewritten",
		Description: "Has a script already",
		Script:      "Verbatim narration text.",
	})

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if result.Failed {
		t.Fatalf("job failed: %s", result.Error)
	}

	if f.script.calls != 0 {
		t.Error("script provider must not be invoked when a script is supplied")
	}
	if f.speech.received != "Verbatim narration text." {
		t.Errorf("supplied script not passed verbatim, got %q", f.speech.received)
	}

	video, err := f.videos.GetVideoByJobID(context.Background(), "job_1")
	if err != nil {
		t.Fatalf("video not persisted: %v", err)
	}
	if video.ScriptText != "Verbatim narration text." {
		t.Errorf("supplied script not persisted verbatim, got %q", video.ScriptText)
	}
}

func TestProcessNextJob_AudioFailureStopsPipeline(t *testing.T) {
	f := newFixture()
	f.speech.err = errors.New("synthesis backend unavailable")
	job := f.addJob("job_1", time.Now(), models.GenerationRequest{Title: "T", Description: "D"})

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob returned an error for a provider failure: %v", err)
	}
	if !result.Failed {
		t.Fatal("expected failed result")
	}

	if job.Status != models.JobStatusFailed {
		t.Errorf("expected failed status, got %s", job.Status)
	}
	if job.Error != "audio stage failed: synthesis backend unavailable" {
		t.Errorf("unexpected error message: %q", job.Error)
	}
	if job.Result != nil {
		t.Error("failed job must not carry a result")
	}

	// Downstream stages never ran
	if f.render.calls != 0 {
		t.Error("render provider must not run after audio failure")
	}
	if f.subtitles.calls != 0 {
		t.Error("subtitle provider must not run after audio failure")
	}
	if count, _ := f.videos.CountVideos(context.Background()); count != 0 {
		t.Error("no video should be persisted for a failed job")
	}

	// Failure recorded against the audio stage
	last := job.Stages[len(job.Stages)-1]
	if last.Stage != models.StageAudio || last.Status != models.JobStatusFailed {
		t.Errorf("failure not recorded against audio stage: %+v", last)
	}
}

func TestProcessNextJob_SkipsUnclaimableJob(t *testing.T) {
	f := newFixture()
	base := time.Now()
	f.addJob("job_head", base, models.GenerationRequest{Title: "A", Description: "a"})
	f.addJob("job_next", base.Add(time.Second), models.GenerationRequest{Title: "B", Description: "b"})

	// Head gets claimed by another instance between list and claim
	f.jobs.unclaimable = map[string]bool{"job_head": true}

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if result.JobID != "job_next" {
		t.Errorf("expected next pending job, got %s", result.JobID)
	}
}

func TestProcessNextJob_SkipsDeletedJob(t *testing.T) {
	f := newFixture()
	base := time.Now()
	f.addJob("job_head", base, models.GenerationRequest{Title: "A", Description: "a"})
	f.addJob("job_next", base.Add(time.Second), models.GenerationRequest{Title: "B", Description: "b"})

	// Head gets deleted by an administrator between list and claim
	f.jobs.deleted = map[string]bool{"job_head": true}

	result, err := f.orch.ProcessNextJob(context.Background())
	if err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}
	if result.JobID != "job_next" {
		t.Errorf("expected next pending job, got %s", result.JobID)
	}
}

func TestProcessNextJob_TerminalStateInvariant(t *testing.T) {
	f := newFixture()
	f.render.err = fmt.Errorf("render farm down")
	job := f.addJob("job_1", time.Now(), models.GenerationRequest{Title: "T", Description: "D"})

	if _, err := f.orch.ProcessNextJob(context.Background()); err != nil {
		t.Fatalf("ProcessNextJob failed: %v", err)
	}

	// Failed implies error message and no result; completed is the converse
	if !job.IsTerminal() {
		t.Fatal("job must reach a terminal state")
	}
	if job.Status == models.JobStatusFailed && (job.Error == "" || job.Result != nil) {
		t.Error("failed job must carry an error and no result")
	}
	if job.CompletedAt == nil {
		t.Error("terminal job must have CompletedAt set")
	}
}

func TestProcessNextJob_StorageListError(t *testing.T) {
	f := newFixture()
	f.jobs.listErr = errors.New("store unavailable")

	if _, err := f.orch.ProcessNextJob(context.Background()); err == nil {
		t.Error("expected storage error to propagate")
	}
}
