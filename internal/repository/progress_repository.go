package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

// ProgressUpdate 一次阅读进度上报；Completed 为 nil 表示沿用之前的完成状态
type ProgressUpdate struct {
	UserID      uint
	NovelID     string
	LastChapter int
	Completed   *bool
	At          time.Time
}

type ProgressRepository interface {
	Upsert(ctx context.Context, u ProgressUpdate) (*model.ReadingProgress, error)
	ListByUser(ctx context.Context, userID uint) ([]*model.ReadingProgress, error)
	Delete(ctx context.Context, userID uint, novelID string) error
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository { return &progressRepository{db: db} }

func (r *progressRepository) Upsert(ctx context.Context, u ProgressUpdate) (*model.ReadingProgress, error) {
	var out model.ReadingProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 共享锁：与删除小说互斥，避免留下孤儿进度
		novel, err := lockNovel(tx, u.NovelID, "SHARE")
		if err != nil {
			return err
		}

		created := false
		err = tx.Where("user_id = ? AND novel_id = ?", u.UserID, u.NovelID).First(&out).Error
		switch {
		case isNotFound(err):
			p := model.ReadingProgress{
				UserID:      u.UserID,
				NovelID:     u.NovelID,
				NovelTitle:  novel.Title,
				CoverImage:  novel.CoverImage,
				Author:      novel.AuthorName,
				LastChapter: u.LastChapter,
			}
			if u.Completed != nil && *u.Completed {
				at := u.At
				p.IsCompleted = true
				p.CompletedAt = &at
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				out = p
				created = true
				break
			}
			// 并发请求已抢先创建，转为更新
			if err := tx.Where("user_id = ? AND novel_id = ?", u.UserID, u.NovelID).First(&out).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}
		if created {
			return nil
		}

		updates := map[string]any{"last_chapter": u.LastChapter}
		if u.Completed != nil {
			updates["is_completed"] = *u.Completed
			if *u.Completed {
				updates["completed_at"] = u.At
			} else {
				updates["completed_at"] = nil
			}
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&out, out.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uint) ([]*model.ReadingProgress, error) {
	var res []*model.ReadingProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&res).Error
	return res, err
}

func (r *progressRepository) Delete(ctx context.Context, userID uint, novelID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND novel_id = ?", userID, novelID).
		Delete(&model.ReadingProgress{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("reading progress for novel %s not found", novelID)
	}
	return nil
}
