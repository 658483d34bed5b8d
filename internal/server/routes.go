package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs (generation queue)
	mux.HandleFunc("/api/jobs/stats", s.app.JobHandler.GetJobStatsHandler)
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id}

	// API routes - Videos (generated catalog)
	mux.HandleFunc("/api/videos", s.app.VideoHandler.ListVideosHandler)
	mux.HandleFunc("/api/videos/", s.app.VideoHandler.GetVideoHandler)

	// API routes - Pipeline control
	mux.HandleFunc("/api/pipeline/trigger", s.app.PipelineHandler.TriggerDrainHandler)
	mux.HandleFunc("/api/pipeline/status", s.app.PipelineHandler.StatusHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute routes the job collection endpoint by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":  s.app.JobHandler.ListJobsHandler,
		"POST": s.app.JobHandler.SubmitJobHandler,
	})
}

// handleJobRoutes routes per-job endpoints by method
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":    s.app.JobHandler.GetJobHandler,
		"DELETE": s.app.JobHandler.DeleteJobHandler,
	})
}
