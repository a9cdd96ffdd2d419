package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/permission"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

type CreateChapterInput struct {
	NovelID       string `json:"novel_id" validate:"required"`
	ChapterNumber int    `json:"chapter_number" validate:"required,gte=1"`
	Name          string `json:"name" validate:"max=255"`
	Title         string `json:"title" validate:"required,min=1,max=500"`
	ChapterType   string `json:"chapter_type" validate:"max=100"`
	Thumbnail     string `json:"thumbnail" validate:"omitempty,url,max=1024"`
	Content       string `json:"content" validate:"required,min=100"`
}

// UpdateChapterInput nil 字段不修改
type UpdateChapterInput struct {
	ChapterNumber *int    `json:"chapter_number" validate:"omitempty,gte=1"`
	Name          *string `json:"name" validate:"omitempty,max=255"`
	Title         *string `json:"title" validate:"omitempty,min=1,max=500"`
	ChapterType   *string `json:"chapter_type" validate:"omitempty,max=100"`
	Thumbnail     *string `json:"thumbnail" validate:"omitempty,url,max=1024"`
	Content       *string `json:"content" validate:"omitempty,min=100"`
}

// ChapterNavigation 相邻章节；没有时为 nil，并带 first/last 标记
type ChapterNavigation struct {
	CurrentChapterNumber int               `json:"current_chapter_number"`
	Next                 *model.ChapterRef `json:"next"`
	Previous             *model.ChapterRef `json:"previous"`
	IsFirst              bool              `json:"is_first"`
	IsLast               bool              `json:"is_last"`
}

type ChapterService interface {
	CreateChapter(ctx context.Context, caller Caller, in CreateChapterInput) (*model.Chapter, error)
	// GetChapter 读取并计一次浏览
	GetChapter(ctx context.Context, id uint) (*model.Chapter, error)
	ListChapters(ctx context.Context, q repository.ChapterQuery) ([]*model.Chapter, int64, error)
	UpdateChapter(ctx context.Context, caller Caller, id uint, in UpdateChapterInput) (*model.Chapter, error)
	DeleteChapter(ctx context.Context, caller Caller, id uint) error
	Navigation(ctx context.Context, id uint) (*ChapterNavigation, error)
}

type chapterService struct {
	chapters  repository.ChapterRepository
	publisher *Publisher
}

func NewChapterService(chapters repository.ChapterRepository, publisher *Publisher) ChapterService {
	return &chapterService{chapters: chapters, publisher: publisher}
}

func (s *chapterService) CreateChapter(ctx context.Context, caller Caller, in CreateChapterInput) (*model.Chapter, error) {
	if !permission.CanCreate(caller.Role) {
		return nil, apperr.Forbidden("only editors and admins can create chapters")
	}
	in.NovelID = strings.TrimSpace(in.NovelID)
	in.Name = strings.TrimSpace(in.Name)
	in.Title = strings.TrimSpace(in.Title)
	in.ChapterType = strings.TrimSpace(in.ChapterType)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ch := &model.Chapter{
		NovelID:       in.NovelID,
		ChapterNumber: in.ChapterNumber,
		Name:          in.Name,
		Title:         in.Title,
		ChapterType:   in.ChapterType,
		Thumbnail:     in.Thumbnail,
		Content:       in.Content,
		CreatedBy:     caller.ID,
		UpdatedBy:     caller.ID,
	}
	if err := s.chapters.CreateWithCounter(ctx, ch, s.publisher.Event()); err != nil {
		return nil, err
	}
	logger.Info("chapter created",
		zap.String("novel_id", ch.NovelID),
		zap.Uint("chapter_id", ch.ID),
		zap.Int("chapter_number", ch.ChapterNumber),
		zap.Uint("by", caller.ID),
	)
	s.publisher.Published(ctx, ch)
	return ch, nil
}

func (s *chapterService) GetChapter(ctx context.Context, id uint) (*model.Chapter, error) {
	ch, err := s.chapters.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.RecordView("chapter")
	return ch, nil
}

func (s *chapterService) ListChapters(ctx context.Context, q repository.ChapterQuery) ([]*model.Chapter, int64, error) {
	switch q.SortBy {
	case "", "chapter_number", "created_at", "updated_at", "views", "title":
	default:
		return nil, 0, apperr.InvalidInput("sortBy must be one of [chapter_number created_at updated_at views title]")
	}
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	return s.chapters.List(ctx, q)
}

func (s *chapterService) UpdateChapter(ctx context.Context, caller Caller, id uint, in UpdateChapterInput) (*model.Chapter, error) {
	cur, err := s.chapters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permission.CanMutate(cur.CreatedBy, caller.ID, caller.Role) {
		return nil, apperr.Forbidden("you do not have permission to update this chapter")
	}

	in.Name = trimPtr(in.Name)
	in.Title = trimPtr(in.Title)
	in.ChapterType = trimPtr(in.ChapterType)
	in.Thumbnail = trimPtr(in.Thumbnail)
	if err := notBlank(map[string]*string{"title": in.Title, "content": in.Content}); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_by": caller.ID}
	if in.ChapterNumber != nil {
		updates["chapter_number"] = *in.ChapterNumber
	}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.ChapterType != nil {
		updates["chapter_type"] = *in.ChapterType
	}
	if in.Thumbnail != nil {
		updates["thumbnail"] = *in.Thumbnail
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	return s.chapters.Update(ctx, id, updates)
}

func (s *chapterService) DeleteChapter(ctx context.Context, caller Caller, id uint) error {
	cur, err := s.chapters.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !permission.CanMutate(cur.CreatedBy, caller.ID, caller.Role) {
		return apperr.Forbidden("you do not have permission to delete this chapter")
	}
	if err := s.chapters.DeleteWithCounter(ctx, cur); err != nil {
		return err
	}
	logger.Info("chapter deleted", zap.String("novel_id", cur.NovelID), zap.Uint("chapter_id", id), zap.Uint("by", caller.ID))
	return nil
}

func (s *chapterService) Navigation(ctx context.Context, id uint) (*ChapterNavigation, error) {
	cur, err := s.chapters.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, prev, err := s.chapters.Neighbors(ctx, cur.NovelID, cur.ChapterNumber)
	if err != nil {
		return nil, err
	}
	return &ChapterNavigation{
		CurrentChapterNumber: cur.ChapterNumber,
		Next:                 next,
		Previous:             prev,
		IsFirst:              prev == nil,
		IsLast:               next == nil,
	}, nil
}
