package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

// RelationRepository 点赞/收藏/订阅三类关系的存储。
// 每次增删都和 novels 上对应计数列的 ±1 处于同一事务，计数永远等于存活记录数。
type RelationRepository interface {
	Add(ctx context.Context, kind model.RelationKind, userID uint, novelID string) error
	Remove(ctx context.Context, kind model.RelationKind, userID uint, novelID string) error
	Exists(ctx context.Context, kind model.RelationKind, userID uint, novelID string) (bool, error)
	// ListSubscribers 小说的全部订阅者，按订阅时间倒序
	ListSubscribers(ctx context.Context, novelID string) ([]model.Subscriber, error)
	// ListSubscriberIDs 按订阅 id 升序的键集分页，afterID 为上一页最后一条的订阅 id
	ListSubscriberIDs(ctx context.Context, novelID string, afterID uint, limit int) ([]SubscriberCursor, error)
	ListUserSubscriptions(ctx context.Context, userID uint, page, limit int) ([]model.SubscribedNovel, int64, error)
	// SubscribedNovelIDs 用户订阅的全部小说 id
	SubscribedNovelIDs(ctx context.Context, userID uint) ([]string, error)
	Count(ctx context.Context, kind model.RelationKind) (int64, error)
}

// SubscriberCursor 扇出分页游标
type SubscriberCursor struct {
	ID     uint
	UserID uint
}

type relationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) RelationRepository { return &relationRepository{db: db} }

func (r *relationRepository) Add(ctx context.Context, kind model.RelationKind, userID uint, novelID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Novel{}).
			Where("public_id = ?", novelID).
			UpdateColumn(kind.CounterColumn(), gorm.Expr(kind.CounterColumn()+" + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("novel %s not found", novelID)
		}

		exists, err := relationExists(tx, kind, userID, novelID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("%s already exists for novel %s", kind, novelID)
		}
		if err := tx.Create(kind.NewRecord(userID, novelID)).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("%s already exists for novel %s", kind, novelID)
			}
			return err
		}
		return nil
	})
}

func (r *relationRepository) Remove(ctx context.Context, kind model.RelationKind, userID uint, novelID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND novel_id = ?", userID, novelID).Delete(kind.Model())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("%s not found for novel %s", kind, novelID)
		}
		return tx.Model(&model.Novel{}).
			Where("public_id = ?", novelID).
			UpdateColumn(kind.CounterColumn(), gorm.Expr(kind.CounterColumn()+" - ?", 1)).Error
	})
}

func relationExists(tx *gorm.DB, kind model.RelationKind, userID uint, novelID string) (bool, error) {
	var cnt int64
	if err := tx.Model(kind.Model()).
		Where("user_id = ? AND novel_id = ?", userID, novelID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *relationRepository) Exists(ctx context.Context, kind model.RelationKind, userID uint, novelID string) (bool, error) {
	return relationExists(r.db.WithContext(ctx), kind, userID, novelID)
}

func (r *relationRepository) ListSubscribers(ctx context.Context, novelID string) ([]model.Subscriber, error) {
	type row struct {
		ID        uint
		UserID    uint
		FullName  string
		Email     string
		CreatedAt time.Time
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("novel_subscriptions").
		Select("novel_subscriptions.id", "novel_subscriptions.user_id", "users.full_name", "users.email", "novel_subscriptions.created_at").
		Joins("JOIN users ON users.id = novel_subscriptions.user_id").
		Where("novel_subscriptions.novel_id = ?", novelID).
		Order("novel_subscriptions.created_at DESC, novel_subscriptions.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Subscriber, len(rows))
	for i, it := range rows {
		out[i] = model.Subscriber{
			SubscriptionID: it.ID,
			User:           model.UserBrief{ID: it.UserID, FullName: it.FullName, Email: it.Email},
			SubscribedAt:   it.CreatedAt,
		}
	}
	return out, nil
}

func (r *relationRepository) ListSubscriberIDs(ctx context.Context, novelID string, afterID uint, limit int) ([]SubscriberCursor, error) {
	var res []SubscriberCursor
	err := r.db.WithContext(ctx).
		Model(&model.NovelSubscription{}).
		Select("id", "user_id").
		Where("novel_id = ? AND id > ?", novelID, afterID).
		Order("id ASC").
		Limit(limit).
		Scan(&res).Error
	return res, err
}

func (r *relationRepository) ListUserSubscriptions(ctx context.Context, userID uint, page, limit int) ([]model.SubscribedNovel, int64, error) {
	db := r.db.WithContext(ctx)
	var total int64
	if err := db.Model(&model.NovelSubscription{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, size := pageOffset(page, limit)
	var subs []model.NovelSubscription
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(size).
		Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	if len(subs) == 0 {
		return []model.SubscribedNovel{}, total, nil
	}

	ids := make([]string, len(subs))
	for i, s := range subs {
		ids[i] = s.NovelID
	}
	var novels []model.Novel
	if err := db.Where("public_id IN ?", ids).Find(&novels).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[string]model.Novel, len(novels))
	for _, n := range novels {
		byID[n.PublicID] = n
	}

	out := make([]model.SubscribedNovel, 0, len(subs))
	for _, s := range subs {
		n, ok := byID[s.NovelID]
		if !ok {
			continue
		}
		out = append(out, model.SubscribedNovel{SubscriptionID: s.ID, SubscribedAt: s.CreatedAt, Novel: n})
	}
	return out, total, nil
}

func (r *relationRepository) SubscribedNovelIDs(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.NovelSubscription{}).
		Where("user_id = ?", userID).
		Pluck("novel_id", &ids).Error
	return ids, err
}

func (r *relationRepository) Count(ctx context.Context, kind model.RelationKind) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(kind.Model()).Count(&cnt).Error
	return cnt, err
}
