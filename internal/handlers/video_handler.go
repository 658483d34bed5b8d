package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
)

// VideoHandler serves the generated video catalog
type VideoHandler struct {
	videoStorage interfaces.VideoStorage
	logger       arbor.ILogger
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(videoStorage interfaces.VideoStorage, logger arbor.ILogger) *VideoHandler {
	return &VideoHandler{
		videoStorage: videoStorage,
		logger:       logger,
	}
}

// ListVideosHandler returns generated videos, newest first
// GET /api/videos?limit=50
func (h *VideoHandler) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetIntParam(r, "limit", 50)

	videos, err := h.videoStorage.ListVideos(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list videos")
		WriteError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"videos": videos,
		"count":  len(videos),
	})
}

// GetVideoHandler returns a single video by ID. Accepts either a video ID
// or, with ?by=job, the ID of the producing job.
// GET /api/videos/{id}
func (h *VideoHandler) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Video ID is required")
		return
	}

	video, err := h.lookupVideo(r, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrVideoNotFound) {
			WriteError(w, http.StatusNotFound, "Video not found")
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to get video")
		WriteError(w, http.StatusInternalServerError, "Failed to get video")
		return
	}

	WriteJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) lookupVideo(r *http.Request, id string) (interface{}, error) {
	if r.URL.Query().Get("by") == "job" {
		return h.videoStorage.GetVideoByJobID(r.Context(), id)
	}
	return h.videoStorage.GetVideo(r.Context(), id)
}
