package models

import (
	"fmt"
	"time"
)

// VideoStatus represents the catalog state of a generated video
type VideoStatus string

const (
	VideoStatusDraft     VideoStatus = "draft"
	VideoStatusCompleted VideoStatus = "completed"
	VideoStatusFailed    VideoStatus = "failed"
)

// Video is the finished, catalog-visible artifact produced by a successful
// pipeline run. Upserted by the final pipeline stage (keyed by JobID) and
// owned thereafter by the content catalog.
type Video struct {
	ID           string      `json:"id" badgerhold:"key"`
	JobID        string      `json:"job_id" badgerhold:"index"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Duration     int         `json:"duration"` // Seconds
	VideoURL     string      `json:"video_url"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	SubtitlesURL string      `json:"subtitles_url,omitempty"`
	ScriptText   string      `json:"script_text,omitempty"`
	Status       VideoStatus `json:"status"`
	CreatedBy    string      `json:"created_by"`
	CourseID     string      `json:"course_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Validate checks required video fields before persistence
func (v *Video) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("video ID is required")
	}
	if v.JobID == "" {
		return fmt.Errorf("video job ID is required")
	}
	if v.Title == "" {
		return fmt.Errorf("video title is required")
	}
	return nil
}
