package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

// NovelQuery 列表过滤条件
type NovelQuery struct {
	Page      int
	Limit     int
	Search    string
	Category  string
	Status    model.NovelStatus
	SortBy    string // created_at, updated_at, views, title, author_name
	SortOrder string // asc, desc
}

// CounterDrift 计数列与实际记录数不一致的小说
type CounterDrift struct {
	PublicID        string `json:"novel_id"`
	ChapterCount    int64  `json:"chapters_count"`
	LiveChapters    int64  `json:"live_chapters"`
	LikeCount       int64  `json:"likes"`
	LiveLikes       int64  `json:"live_likes"`
	BookmarkCount   int64  `json:"bookmarks"`
	LiveBookmarks   int64  `json:"live_bookmarks"`
	SubscriberCount int64  `json:"subscribers_count"`
	LiveSubscribers int64  `json:"live_subscribers"`
}

type NovelRepository interface {
	Create(ctx context.Context, n *model.Novel) error
	GetByPublicID(ctx context.Context, publicID string) (*model.Novel, error)
	List(ctx context.Context, q NovelQuery) ([]*model.Novel, int64, error)
	Update(ctx context.Context, publicID string, updates map[string]any) (*model.Novel, error)
	// DeleteCascade 在一个事务内删除小说及其章节、关系记录与阅读进度
	DeleteCascade(ctx context.Context, publicID string) error
	// IncrementViews 原子自增浏览数并返回自增后的小说
	IncrementViews(ctx context.Context, publicID string) (*model.Novel, error)
	ChapterViewSum(ctx context.Context, publicID string) (int64, error)
	Recent(ctx context.Context, limit int) ([]*model.Novel, error)
	TopByViews(ctx context.Context, limit int) ([]*model.Novel, error)
	Count(ctx context.Context) (int64, error)
	// ReconcileCounters 按实际记录重算计数列，返回修正前存在偏差的小说
	ReconcileCounters(ctx context.Context) ([]CounterDrift, error)
}

type novelRepository struct {
	db *gorm.DB
}

func NewNovelRepository(db *gorm.DB) NovelRepository { return &novelRepository{db: db} }

var novelSortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"views":       "view_count",
	"title":       "title",
	"author_name": "author_name",
}

func (r *novelRepository) Create(ctx context.Context, n *model.Novel) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("novel %s already exists", n.PublicID)
		}
		return err
	}
	return nil
}

func (r *novelRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Novel, error) {
	return findNovel(r.db.WithContext(ctx), publicID)
}

// lockNovel 带行锁读取小说；strength 为 UPDATE 或 SHARE。sqlite 没有行锁，忽略该子句
func lockNovel(tx *gorm.DB, publicID, strength string) (*model.Novel, error) {
	return findNovel(tx.Clauses(clause.Locking{Strength: strength}), publicID)
}

func findNovel(tx *gorm.DB, publicID string) (*model.Novel, error) {
	var n model.Novel
	if err := tx.Where("public_id = ?", publicID).First(&n).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("novel %s not found", publicID)
		}
		return nil, err
	}
	return &n, nil
}

func (r *novelRepository) List(ctx context.Context, q NovelQuery) ([]*model.Novel, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Novel{})
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(author_name) LIKE ? OR LOWER(novel_summary) LIKE ?", like, like, like)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		quoted, _ := json.Marshal(c)
		tx = tx.Where("categories LIKE ?", "%"+string(quoted)+"%")
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := novelSortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		dir = "ASC"
	}
	offset, limit := pageOffset(q.Page, q.Limit)

	var res []*model.Novel
	err := tx.Order(fmt.Sprintf("%s %s, id %s", col, dir, dir)).Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}

func (r *novelRepository) Update(ctx context.Context, publicID string, updates map[string]any) (*model.Novel, error) {
	var out *model.Novel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Novel{}).Where("public_id = ?", publicID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("novel %s not found", publicID)
		}
		n, err := findNovel(tx, publicID)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *novelRepository) DeleteCascade(ctx context.Context, publicID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先锁父行：已持锁的建章/关系事务提交后子行才可见，之后的则在计数更新处等待并得到 NotFound
		if _, err := lockNovel(tx, publicID, "UPDATE"); err != nil {
			return err
		}
		children := []any{
			&model.Chapter{},
			&model.NovelLike{},
			&model.NovelBookmark{},
			&model.NovelSubscription{},
			&model.ReadingProgress{},
		}
		for _, m := range children {
			if err := tx.Where("novel_id = ?", publicID).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Where("public_id = ?", publicID).Delete(&model.Novel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("novel %s not found", publicID)
		}
		return nil
	})
}

func (r *novelRepository) IncrementViews(ctx context.Context, publicID string) (*model.Novel, error) {
	var out *model.Novel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Novel{}).
			Where("public_id = ?", publicID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("novel %s not found", publicID)
		}
		n, err := findNovel(tx, publicID)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *novelRepository) ChapterViewSum(ctx context.Context, publicID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Chapter{}).
		Where("novel_id = ?", publicID).
		Select("COALESCE(SUM(view_count), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *novelRepository) Recent(ctx context.Context, limit int) ([]*model.Novel, error) {
	var res []*model.Novel
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&res).Error
	return res, err
}

func (r *novelRepository) TopByViews(ctx context.Context, limit int) ([]*model.Novel, error) {
	var res []*model.Novel
	err := r.db.WithContext(ctx).Order("view_count DESC, id ASC").Limit(limit).Find(&res).Error
	return res, err
}

func (r *novelRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Novel{}).Count(&cnt).Error
	return cnt, err
}

const (
	liveChaptersExpr    = "(SELECT COUNT(*) FROM chapters WHERE chapters.novel_id = novels.public_id)"
	liveLikesExpr       = "(SELECT COUNT(*) FROM novel_likes WHERE novel_likes.novel_id = novels.public_id)"
	liveBookmarksExpr   = "(SELECT COUNT(*) FROM novel_bookmarks WHERE novel_bookmarks.novel_id = novels.public_id)"
	liveSubscribersExpr = "(SELECT COUNT(*) FROM novel_subscriptions WHERE novel_subscriptions.novel_id = novels.public_id)"
)

func (r *novelRepository) ReconcileCounters(ctx context.Context) ([]CounterDrift, error) {
	var drifts []CounterDrift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			SELECT public_id,
				chapter_count, ` + liveChaptersExpr + ` AS live_chapters,
				like_count, ` + liveLikesExpr + ` AS live_likes,
				bookmark_count, ` + liveBookmarksExpr + ` AS live_bookmarks,
				subscriber_count, ` + liveSubscribersExpr + ` AS live_subscribers
			FROM novels
			WHERE chapter_count <> ` + liveChaptersExpr + `
				OR like_count <> ` + liveLikesExpr + `
				OR bookmark_count <> ` + liveBookmarksExpr + `
				OR subscriber_count <> ` + liveSubscribersExpr + `
			ORDER BY id
		`).Scan(&drifts).Error
		if err != nil {
			return err
		}
		if len(drifts) == 0 {
			return nil
		}
		ids := make([]string, len(drifts))
		for i, d := range drifts {
			ids[i] = d.PublicID
		}
		return tx.Model(&model.Novel{}).Where("public_id IN ?", ids).UpdateColumns(map[string]any{
			"chapter_count":    gorm.Expr(liveChaptersExpr),
			"like_count":       gorm.Expr(liveLikesExpr),
			"bookmark_count":   gorm.Expr(liveBookmarksExpr),
			"subscriber_count": gorm.Expr(liveSubscribersExpr),
		}).Error
	})
	return drifts, err
}
