package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

// ChapterQuery 章节列表过滤条件
type ChapterQuery struct {
	NovelID   string
	Search    string
	Page      int
	Limit     int
	SortBy    string // chapter_number, created_at, updated_at, views, title
	SortOrder string // asc, desc
}

type ChapterRepository interface {
	// CreateWithCounter 插入章节并使所属小说 chapter_count+1；event 非空时同事务写入 outbox
	CreateWithCounter(ctx context.Context, ch *model.Chapter, event *model.Outbox) error
	GetByID(ctx context.Context, id uint) (*model.Chapter, error)
	IncrementViews(ctx context.Context, id uint) (*model.Chapter, error)
	List(ctx context.Context, q ChapterQuery) ([]*model.Chapter, int64, error)
	Update(ctx context.Context, id uint, updates map[string]any) (*model.Chapter, error)
	// DeleteWithCounter 删除章节并使所属小说 chapter_count-1
	DeleteWithCounter(ctx context.Context, ch *model.Chapter) error
	Neighbors(ctx context.Context, novelID string, number int) (next, prev *model.ChapterRef, err error)
	CountByNovel(ctx context.Context, novelID string) (int64, error)
	Recent(ctx context.Context, limit int) ([]*model.Chapter, error)
	Count(ctx context.Context) (int64, error)
}

type chapterRepository struct {
	db *gorm.DB
}

func NewChapterRepository(db *gorm.DB) ChapterRepository { return &chapterRepository{db: db} }

var chapterSortColumns = map[string]string{
	"chapter_number": "chapter_number",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"views":          "view_count",
	"title":          "title",
}

func (r *chapterRepository) CreateWithCounter(ctx context.Context, ch *model.Chapter, event *model.Outbox) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先更新父行：postgres 下同一小说的并发建章在此串行
		res := tx.Model(&model.Novel{}).
			Where("public_id = ?", ch.NovelID).
			UpdateColumn("chapter_count", gorm.Expr("chapter_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("novel %s not found", ch.NovelID)
		}

		taken, err := chapterNumberTaken(tx, ch.NovelID, ch.ChapterNumber, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("chapter %d already exists for this novel", ch.ChapterNumber)
		}
		if err := tx.Create(ch).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("chapter %d already exists for this novel", ch.ChapterNumber)
			}
			return err
		}

		if event != nil {
			event.ChapterID = ch.ID
			event.NovelID = ch.NovelID
			event.ChapterTitle = ch.Title
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func chapterNumberTaken(tx *gorm.DB, novelID string, number int, excludeID uint) (bool, error) {
	q := tx.Model(&model.Chapter{}).Where("novel_id = ? AND chapter_number = ?", novelID, number)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func findChapter(tx *gorm.DB, id uint) (*model.Chapter, error) {
	var ch model.Chapter
	if err := tx.First(&ch, id).Error; err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("chapter %d not found", id)
		}
		return nil, err
	}
	return &ch, nil
}

func (r *chapterRepository) GetByID(ctx context.Context, id uint) (*model.Chapter, error) {
	return findChapter(r.db.WithContext(ctx), id)
}

func (r *chapterRepository) IncrementViews(ctx context.Context, id uint) (*model.Chapter, error) {
	var out *model.Chapter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Chapter{}).
			Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("chapter %d not found", id)
		}
		ch, err := findChapter(tx, id)
		if err != nil {
			return err
		}
		out = ch
		return nil
	})
	return out, err
}

func (r *chapterRepository) List(ctx context.Context, q ChapterQuery) ([]*model.Chapter, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Chapter{})
	if q.NovelID != "" {
		tx = tx.Where("novel_id = ?", q.NovelID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(title) LIKE ? OR LOWER(content) LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := chapterSortColumns[q.SortBy]
	if !ok {
		col = "chapter_number"
	}
	dir := "ASC"
	if strings.EqualFold(q.SortOrder, "desc") {
		dir = "DESC"
	}
	offset, limit := pageOffset(q.Page, q.Limit)

	var res []*model.Chapter
	err := tx.Order(col + " " + dir + ", id " + dir).Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}

func (r *chapterRepository) Update(ctx context.Context, id uint, updates map[string]any) (*model.Chapter, error) {
	var out *model.Chapter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := findChapter(tx, id)
		if err != nil {
			return err
		}
		if n, ok := updates["chapter_number"].(int); ok && n != cur.ChapterNumber {
			taken, err := chapterNumberTaken(tx, cur.NovelID, n, cur.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("chapter %d already exists for this novel", n)
			}
		}
		if err := tx.Model(cur).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("chapter number already exists for this novel")
			}
			return err
		}
		ch, err := findChapter(tx, id)
		if err != nil {
			return err
		}
		out = ch
		return nil
	})
	return out, err
}

func (r *chapterRepository) DeleteWithCounter(ctx context.Context, ch *model.Chapter) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", ch.ID).Delete(&model.Chapter{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("chapter %d not found", ch.ID)
		}
		return tx.Model(&model.Novel{}).
			Where("public_id = ?", ch.NovelID).
			UpdateColumn("chapter_count", gorm.Expr("chapter_count - ?", 1)).Error
	})
}

func (r *chapterRepository) Neighbors(ctx context.Context, novelID string, number int) (*model.ChapterRef, *model.ChapterRef, error) {
	db := r.db.WithContext(ctx)
	next, err := neighbor(db, novelID, "chapter_number > ?", number, "chapter_number ASC")
	if err != nil {
		return nil, nil, err
	}
	prev, err := neighbor(db, novelID, "chapter_number < ?", number, "chapter_number DESC")
	if err != nil {
		return nil, nil, err
	}
	return next, prev, nil
}

func neighbor(db *gorm.DB, novelID, cond string, number int, order string) (*model.ChapterRef, error) {
	var refs []model.ChapterRef
	err := db.Model(&model.Chapter{}).
		Select("id", "chapter_number", "name", "title").
		Where("novel_id = ?", novelID).
		Where(cond, number).
		Order(order).
		Limit(1).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return &refs[0], nil
}

func (r *chapterRepository) CountByNovel(ctx context.Context, novelID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Chapter{}).Where("novel_id = ?", novelID).Count(&cnt).Error
	return cnt, err
}

func (r *chapterRepository) Recent(ctx context.Context, limit int) ([]*model.Chapter, error) {
	var res []*model.Chapter
	err := r.db.WithContext(ctx).
		Select("id", "novel_id", "chapter_number", "title", "view_count", "created_at").
		Order("created_at DESC").Limit(limit).Find(&res).Error
	return res, err
}

func (r *chapterRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Chapter{}).Count(&cnt).Error
	return cnt, err
}
