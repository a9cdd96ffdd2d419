package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

type NotificationRepository interface {
	// CreateBatch 批量写入，(user_id, event_id) 冲突的行被忽略；返回实际写入条数
	CreateBatch(ctx context.Context, items []model.Notification) (int64, error)
	List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]*model.Notification, int64, error)
	// MarkRead 全部 id 都属于该用户才会生效，否则整体拒绝
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type notificationRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, batchSize: 500}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, items []model.Notification) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&items, r.batchSize)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) ([]*model.Notification, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, size := pageOffset(page, limit)
	var res []*model.Notification
	err := tx.Order("created_at DESC, id DESC").Offset(offset).Limit(size).Find(&res).Error
	return res, total, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	uniq := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return 0, apperr.InvalidInput("notification_ids must not be empty")
	}

	var updated int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&model.Notification{}).
			Where("id IN ? AND user_id = ?", uniq, userID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(uniq)) {
			return apperr.NotFound("some notifications not found or do not belong to you")
		}
		res := tx.Model(&model.Notification{}).
			Where("id IN ? AND user_id = ?", uniq, userID).
			Update("is_read", true)
		if res.Error != nil {
			return res.Error
		}
		updated = int64(len(uniq))
		return nil
	})
	return updated, err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&cnt).Error
	return cnt, err
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("notification %d not found", id)
	}
	return nil
}
