package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
	"github.com/ternarybob/fabrica/internal/services/generation"
)

// mockGenerationService implements interfaces.GenerationService
type mockGenerationService struct {
	jobs      map[string]*models.Job
	submitErr error
	lastOwner string
}

func newMockGenerationService() *mockGenerationService {
	return &mockGenerationService{jobs: make(map[string]*models.Job)}
}

func (m *mockGenerationService) Submit(ctx context.Context, ownerID string, request models.GenerationRequest) (string, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	m.lastOwner = ownerID
	jobID := fmt.Sprintf("job_%d", len(m.jobs)+1)
	m.jobs[jobID] = models.NewJob(jobID, ownerID, request)
	return jobID, nil
}

func (m *mockGenerationService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

func (m *mockGenerationService) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	var jobs []*models.Job
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *mockGenerationService) DeleteJob(ctx context.Context, jobID string) error {
	if _, ok := m.jobs[jobID]; !ok {
		return interfaces.ErrJobNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

func (m *mockGenerationService) Stats(ctx context.Context) (map[string]int, error) {
	return map[string]int{"pending": len(m.jobs)}, nil
}

func TestSubmitJobHandler(t *testing.T) {
	service := newMockGenerationService()
	handler := NewJobHandler(service, arbor.NewLogger())

	body := `{"owner_id":"user_1","title":"Intro to Go","description":"A short intro"}`
	req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SubmitJobHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["job_id"] == "" {
		t.Error("response must carry job_id")
	}
	if service.lastOwner != "user_1" {
		t.Errorf("owner not forwarded: %s", service.lastOwner)
	}
}

func TestSubmitJobHandler_InvalidRequest(t *testing.T) {
	service := newMockGenerationService()
	service.submitErr = fmt.Errorf("%w: title required", generation.ErrInvalidRequest)
	handler := NewJobHandler(service, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(`{"owner_id":"u"}`))
	rec := httptest.NewRecorder()

	handler.SubmitJobHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for validation failure, got %d", rec.Code)
	}
}

func TestSubmitJobHandler_MalformedJSON(t *testing.T) {
	handler := NewJobHandler(newMockGenerationService(), arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	handler.SubmitJobHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGetJobHandler(t *testing.T) {
	service := newMockGenerationService()
	service.jobs["job_1"] = models.NewJob("job_1", "user_1", models.GenerationRequest{
		Title:       "T",
		Description: "D",
	})
	handler := NewJobHandler(service, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job_1", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var job models.Job
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("failed to decode job: %v", err)
	}
	if job.ID != "job_1" {
		t.Errorf("unexpected job: %s", job.ID)
	}
}

func TestGetJobHandler_NotFound(t *testing.T) {
	handler := NewJobHandler(newMockGenerationService(), arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job_missing", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteJobHandler(t *testing.T) {
	service := newMockGenerationService()
	service.jobs["job_1"] = models.NewJob("job_1", "u", models.GenerationRequest{Title: "T", Description: "D"})
	handler := NewJobHandler(service, arbor.NewLogger())

	req := httptest.NewRequest("DELETE", "/api/jobs/job_1", nil)
	rec := httptest.NewRecorder()

	handler.DeleteJobHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(service.jobs) != 0 {
		t.Error("job not deleted")
	}
}

func TestGetJobStatsHandler(t *testing.T) {
	service := newMockGenerationService()
	service.jobs["job_1"] = models.NewJob("job_1", "u", models.GenerationRequest{Title: "T", Description: "D"})
	handler := NewJobHandler(service, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/stats", nil)
	rec := httptest.NewRecorder()

	handler.GetJobStatsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["pending"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
