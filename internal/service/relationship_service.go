package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

// InteractionService 点赞/收藏/订阅。每个开关的两半都“重复即报错”：
// 重复开返回 Conflict，重复关返回 NotFound。
type InteractionService interface {
	Like(ctx context.Context, userID uint, novelID string) error
	Unlike(ctx context.Context, userID uint, novelID string) error
	Bookmark(ctx context.Context, userID uint, novelID string) error
	Unbookmark(ctx context.Context, userID uint, novelID string) error
	Subscribe(ctx context.Context, userID uint, novelID string) error
	Unsubscribe(ctx context.Context, userID uint, novelID string) error

	CheckSubscription(ctx context.Context, userID uint, novelID string) (bool, error)
	// GetNovelSubscribers 按订阅时间倒序
	GetNovelSubscribers(ctx context.Context, novelID string) ([]model.Subscriber, error)
	ListUserSubscriptions(ctx context.Context, userID uint, page, limit int) ([]model.SubscribedNovel, int64, error)
}

type interactionService struct {
	relations repository.RelationRepository
	cache     *cache.SubscriberCache
}

// NewInteractionService cache 可为 nil
func NewInteractionService(relations repository.RelationRepository, subscriberCache *cache.SubscriberCache) InteractionService {
	return &interactionService{relations: relations, cache: subscriberCache}
}

func (s *interactionService) toggle(ctx context.Context, kind model.RelationKind, on bool, userID uint, novelID string) error {
	novelID = strings.TrimSpace(novelID)
	if novelID == "" {
		return apperr.InvalidInput("novel_id is required")
	}

	action := "off"
	var err error
	if on {
		action = "on"
		err = s.relations.Add(ctx, kind, userID, novelID)
	} else {
		err = s.relations.Remove(ctx, kind, userID, novelID)
	}
	metrics.RecordToggle(kind.String(), action, toggleResult(err))
	if err != nil {
		return err
	}

	if kind == model.RelationSubscription && s.cache != nil {
		s.cache.Invalidate(ctx, novelID)
	}
	logger.Debug("relation toggled",
		zap.String("kind", kind.String()),
		zap.String("action", action),
		zap.Uint("user_id", userID),
		zap.String("novel_id", novelID),
	)
	return nil
}

func toggleResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func (s *interactionService) Like(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationLike, true, userID, novelID)
}

func (s *interactionService) Unlike(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationLike, false, userID, novelID)
}

func (s *interactionService) Bookmark(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationBookmark, true, userID, novelID)
}

func (s *interactionService) Unbookmark(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationBookmark, false, userID, novelID)
}

func (s *interactionService) Subscribe(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationSubscription, true, userID, novelID)
}

func (s *interactionService) Unsubscribe(ctx context.Context, userID uint, novelID string) error {
	return s.toggle(ctx, model.RelationSubscription, false, userID, novelID)
}

func (s *interactionService) CheckSubscription(ctx context.Context, userID uint, novelID string) (bool, error) {
	return s.relations.Exists(ctx, model.RelationSubscription, userID, novelID)
}

func (s *interactionService) GetNovelSubscribers(ctx context.Context, novelID string) ([]model.Subscriber, error) {
	load := func(ctx context.Context) ([]model.Subscriber, error) {
		return s.relations.ListSubscribers(ctx, novelID)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.Get(ctx, novelID, load)
}

func (s *interactionService) ListUserSubscriptions(ctx context.Context, userID uint, page, limit int) ([]model.SubscribedNovel, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.relations.ListUserSubscriptions(ctx, userID, page, limit)
}
