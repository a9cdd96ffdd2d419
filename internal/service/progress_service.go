package service

import (
	"context"
	"strings"
	"time"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
)

type UpdateProgressInput struct {
	NovelID     string `json:"novel_id" validate:"required"`
	LastChapter int    `json:"last_chapter" validate:"required,gte=1"`
	// IsCompleted 省略时沿用之前的状态
	IsCompleted *bool `json:"is_completed"`
}

type ProgressService interface {
	UpdateReadingProgress(ctx context.Context, userID uint, in UpdateProgressInput) (*model.ReadingProgress, error)
	ListReadingProgress(ctx context.Context, userID uint) ([]*model.ReadingProgress, error)
	DeleteReadingProgress(ctx context.Context, userID uint, novelID string) error
}

type progressService struct {
	progress repository.ProgressRepository
	now      func() time.Time
}

func NewProgressService(progress repository.ProgressRepository) ProgressService {
	return &progressService{progress: progress, now: time.Now}
}

func (s *progressService) UpdateReadingProgress(ctx context.Context, userID uint, in UpdateProgressInput) (*model.ReadingProgress, error) {
	in.NovelID = strings.TrimSpace(in.NovelID)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return s.progress.Upsert(ctx, repository.ProgressUpdate{
		UserID:      userID,
		NovelID:     in.NovelID,
		LastChapter: in.LastChapter,
		Completed:   in.IsCompleted,
		At:          s.now(),
	})
}

func (s *progressService) ListReadingProgress(ctx context.Context, userID uint) ([]*model.ReadingProgress, error) {
	return s.progress.ListByUser(ctx, userID)
}

func (s *progressService) DeleteReadingProgress(ctx context.Context, userID uint, novelID string) error {
	return s.progress.Delete(ctx, userID, strings.TrimSpace(novelID))
}
