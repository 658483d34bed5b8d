package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
)

// PipelineHandler exposes manual pipeline controls
type PipelineHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *PipelineHandler {
	return &PipelineHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// TriggerDrainHandler kicks off one drain cycle immediately
// POST /api/pipeline/trigger
func (h *PipelineHandler) TriggerDrainHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.scheduler.TriggerDrain(); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to trigger drain")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Drain cycle triggered",
	})
}

// StatusHandler reports pipeline scheduler state
// GET /api/pipeline/status
func (h *PipelineHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.scheduler.IsRunning(),
	})
}
