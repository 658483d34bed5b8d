package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fabrica/internal/interfaces"
	"github.com/ternarybob/fabrica/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VideoStorage implements the VideoStorage interface for Badger
type VideoStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVideoStorage creates a new VideoStorage instance
func NewVideoStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VideoStorage {
	return &VideoStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VideoStorage) SaveVideo(ctx context.Context, video *models.Video) error {
	if err := video.Validate(); err != nil {
		return fmt.Errorf("invalid video: %w", err)
	}

	video.UpdatedAt = time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = video.UpdatedAt
	}

	if err := s.db.Store().Upsert(video.ID, video); err != nil {
		return fmt.Errorf("failed to save video: %w", err)
	}
	return nil
}

func (s *VideoStorage) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	var video models.Video
	if err := s.db.Store().Get(videoID, &video); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

func (s *VideoStorage) GetVideoByJobID(ctx context.Context, jobID string) (*models.Video, error) {
	var videos []models.Video
	if err := s.db.Store().Find(&videos, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to find video by job: %w", err)
	}
	if len(videos) == 0 {
		return nil, interfaces.ErrVideoNotFound
	}
	return &videos[0], nil
}

func (s *VideoStorage) ListVideos(ctx context.Context, limit int) ([]*models.Video, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var videos []models.Video
	if err := s.db.Store().Find(&videos, query); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	result := make([]*models.Video, len(videos))
	for i := range videos {
		result[i] = &videos[i]
	}
	return result, nil
}

func (s *VideoStorage) DeleteVideo(ctx context.Context, videoID string) error {
	if err := s.db.Store().Delete(videoID, &models.Video{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrVideoNotFound
		}
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (s *VideoStorage) CountVideos(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Video{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return int(count), nil
}
