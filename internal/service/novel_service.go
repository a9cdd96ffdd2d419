package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/permission"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

type CreateNovelInput struct {
	Title      string            `json:"title" validate:"required,min=1,max=500"`
	AuthorName string            `json:"author_name" validate:"required,min=1,max=255"`
	Summary    string            `json:"novel_summary" validate:"required,min=10"`
	CoverImage string            `json:"cover_image" validate:"omitempty,url,max=1024"`
	Categories []string          `json:"categories" validate:"required,min=1,dive,required,max=100"`
	Status     model.NovelStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// UpdateNovelInput nil 字段不修改
type UpdateNovelInput struct {
	Title      *string            `json:"title" validate:"omitempty,min=1,max=500"`
	AuthorName *string            `json:"author_name" validate:"omitempty,min=1,max=255"`
	Summary    *string            `json:"novel_summary" validate:"omitempty,min=10"`
	CoverImage *string            `json:"cover_image" validate:"omitempty,url,max=1024"`
	Categories []string           `json:"categories" validate:"omitempty,min=1,dive,required,max=100"`
	Status     *model.NovelStatus `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
}

// NovelStats 小说统计
type NovelStats struct {
	NovelID           string `json:"novel_id"`
	Title             string `json:"title"`
	TotalViews        int64  `json:"total_views"`
	TotalChapters     int64  `json:"total_chapters"`
	TotalSubscribers  int64  `json:"total_subscribers"`
	TotalLikes        int64  `json:"total_likes"`
	TotalBookmarks    int64  `json:"total_bookmarks"`
	TotalChapterViews int64  `json:"total_chapter_views"`
}

type NovelService interface {
	CreateNovel(ctx context.Context, caller Caller, in CreateNovelInput) (*model.Novel, error)
	// GetNovel 读取并计一次浏览，返回值包含本次浏览
	GetNovel(ctx context.Context, publicID string) (*model.Novel, error)
	ListNovels(ctx context.Context, q repository.NovelQuery) ([]*model.Novel, int64, error)
	UpdateNovel(ctx context.Context, caller Caller, publicID string, in UpdateNovelInput) (*model.Novel, error)
	DeleteNovel(ctx context.Context, caller Caller, publicID string) error
	Stats(ctx context.Context, publicID string) (*NovelStats, error)
}

type novelService struct {
	novels repository.NovelRepository
	cache  *cache.SubscriberCache
}

// NewNovelService cache 可为 nil
func NewNovelService(novels repository.NovelRepository, subscriberCache *cache.SubscriberCache) NovelService {
	return &novelService{novels: novels, cache: subscriberCache}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *novelService) CreateNovel(ctx context.Context, caller Caller, in CreateNovelInput) (*model.Novel, error) {
	if !permission.CanCreate(caller.Role) {
		return nil, apperr.Forbidden("only editors and admins can create novels")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.Summary = strings.TrimSpace(in.Summary)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	cats := model.Categories(in.Categories).Normalize()
	if len(cats) == 0 {
		return nil, apperr.InvalidInput("categories must contain at least one non-blank item")
	}
	status := in.Status
	if status == "" {
		status = model.NovelDraft
	}

	n := &model.Novel{
		PublicID:   uuid.NewString(),
		Title:      in.Title,
		AuthorName: in.AuthorName,
		Summary:    in.Summary,
		CoverImage: in.CoverImage,
		Categories: cats,
		Status:     status,
		CreatedBy:  caller.ID,
		UpdatedBy:  caller.ID,
	}
	if err := s.novels.Create(ctx, n); err != nil {
		return nil, err
	}
	logger.Info("novel created", zap.String("novel_id", n.PublicID), zap.Uint("by", caller.ID))
	return n, nil
}

func (s *novelService) GetNovel(ctx context.Context, publicID string) (*model.Novel, error) {
	n, err := s.novels.IncrementViews(ctx, publicID)
	if err != nil {
		return nil, err
	}
	metrics.RecordView("novel")
	return n, nil
}

func (s *novelService) ListNovels(ctx context.Context, q repository.NovelQuery) ([]*model.Novel, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, apperr.InvalidInput("status must be one of [DRAFT PUBLISHED]")
	}
	if q.SortOrder != "" && !strings.EqualFold(q.SortOrder, "asc") && !strings.EqualFold(q.SortOrder, "desc") {
		return nil, 0, apperr.InvalidInput("sortOrder must be asc or desc")
	}
	switch q.SortBy {
	case "", "created_at", "updated_at", "views", "title", "author_name":
	default:
		return nil, 0, apperr.InvalidInput("sortBy must be one of [created_at updated_at views title author_name]")
	}
	q.Page, q.Limit = normalizePage(q.Page, q.Limit)
	return s.novels.List(ctx, q)
}

func (s *novelService) UpdateNovel(ctx context.Context, caller Caller, publicID string, in UpdateNovelInput) (*model.Novel, error) {
	cur, err := s.novels.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !permission.CanMutate(cur.CreatedBy, caller.ID, caller.Role) {
		return nil, apperr.Forbidden("you do not have permission to update this novel")
	}

	in.Title = trimPtr(in.Title)
	in.AuthorName = trimPtr(in.AuthorName)
	in.Summary = trimPtr(in.Summary)
	in.CoverImage = trimPtr(in.CoverImage)
	if err := notBlank(map[string]*string{"title": in.Title, "author_name": in.AuthorName, "novel_summary": in.Summary}); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_by": caller.ID}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.AuthorName != nil {
		updates["author_name"] = *in.AuthorName
	}
	if in.Summary != nil {
		updates["novel_summary"] = *in.Summary
	}
	if in.CoverImage != nil {
		updates["cover_image"] = *in.CoverImage
	}
	if in.Categories != nil {
		cats := model.Categories(in.Categories).Normalize()
		if len(cats) == 0 {
			return nil, apperr.InvalidInput("categories must contain at least one non-blank item")
		}
		updates["categories"] = cats
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	return s.novels.Update(ctx, publicID, updates)
}

func (s *novelService) DeleteNovel(ctx context.Context, caller Caller, publicID string) error {
	cur, err := s.novels.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if !permission.CanMutate(cur.CreatedBy, caller.ID, caller.Role) {
		return apperr.Forbidden("you do not have permission to delete this novel")
	}
	if err := s.novels.DeleteCascade(ctx, publicID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, publicID)
	}
	logger.Info("novel deleted", zap.String("novel_id", publicID), zap.Uint("by", caller.ID))
	return nil
}

func (s *novelService) Stats(ctx context.Context, publicID string) (*NovelStats, error) {
	n, err := s.novels.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	sum, err := s.novels.ChapterViewSum(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return &NovelStats{
		NovelID:           n.PublicID,
		Title:             n.Title,
		TotalViews:        n.ViewCount,
		TotalChapters:     n.ChapterCount,
		TotalSubscribers:  n.SubscriberCount,
		TotalLikes:        n.LikeCount,
		TotalBookmarks:    n.BookmarkCount,
		TotalChapterViews: sum,
	}, nil
}
