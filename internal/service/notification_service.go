package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/tracing"
)

// NotificationService 新章节通知扇出与用户收件箱
type NotificationService interface {
	// NotifyNewChapter 给小说的全部订阅者各写一条未读通知，返回写入条数；无订阅者时不写库
	NotifyNewChapter(ctx context.Context, novelID, chapterTitle string) (int64, error)
	// NotifyEvent 同上，但使用调用方给定的事件 id；同一事件重放时已通知过的用户被跳过
	NotifyEvent(ctx context.Context, eventID, novelID, chapterTitle string) (int64, error)

	List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type notificationService struct {
	notifications repository.NotificationRepository
	relations     repository.RelationRepository
	novels        repository.NovelRepository
	pageSize      int
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	relations repository.RelationRepository,
	novels repository.NovelRepository,
	pageSize int,
) NotificationService {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &notificationService{notifications: notifications, relations: relations, novels: novels, pageSize: pageSize}
}

// ChapterMessage 通知正文
func ChapterMessage(chapterTitle, novelTitle string) string {
	return fmt.Sprintf(`New chapter "%s" has been published in "%s"`, chapterTitle, novelTitle)
}

func (s *notificationService) NotifyNewChapter(ctx context.Context, novelID, chapterTitle string) (int64, error) {
	return s.NotifyEvent(ctx, uuid.NewString(), novelID, chapterTitle)
}

func (s *notificationService) NotifyEvent(ctx context.Context, eventID, novelID, chapterTitle string) (written int64, err error) {
	ctx, span := tracing.Start(ctx, "notification.fanout",
		attribute.String("novel_id", novelID),
		attribute.String("event_id", eventID),
	)
	defer func() {
		span.SetAttributes(attribute.Int64("written", written))
		tracing.End(span, err)
	}()

	// 按订阅 id 键集分页拉全量订阅者，最后一次性批量写入
	var userIDs []uint
	var after uint
	for {
		page, err := s.relations.ListSubscriberIDs(ctx, novelID, after, s.pageSize)
		if err != nil {
			return 0, err
		}
		for _, c := range page {
			userIDs = append(userIDs, c.UserID)
		}
		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	novel, err := s.novels.GetByPublicID(ctx, novelID)
	if err != nil {
		return 0, err
	}
	msg := ChapterMessage(chapterTitle, novel.Title)
	items := make([]model.Notification, len(userIDs))
	for i, uid := range userIDs {
		items[i] = model.Notification{UserID: uid, EventID: eventID, Message: msg}
	}
	return s.notifications.CreateBatch(ctx, items)
}

func (s *notificationService) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]*model.Notification, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.notifications.List(ctx, userID, unreadOnly, page, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	return s.notifications.MarkRead(ctx, userID, ids)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.notifications.Delete(ctx, userID, id)
}
