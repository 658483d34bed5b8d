package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewVideoID generates a unique video ID with the "vid_" prefix
// Format: vid_<uuid>
func NewVideoID() string {
	return "vid_" + uuid.New().String()
}
