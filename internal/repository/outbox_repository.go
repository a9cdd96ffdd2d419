package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/internal/model"
)

// OutboxRepository 章节发布事件的领取与完成。
// 领取用条件更新实现：只有把 pending 改成 processing 成功的那个 worker 拿到该行，
// 不依赖 SKIP LOCKED，postgres 与 sqlite 行为一致。
type OutboxRepository interface {
	// Claim 领取最多 limit 条待处理事件；claimed_at 早于 staleBefore 的 processing 行视为中断，重新领取
	Claim(ctx context.Context, limit int, now, staleBefore time.Time) ([]model.Outbox, error)
	MarkDone(ctx context.Context, id string, fanout int64, at time.Time) error
	// Release 处理失败，放回 pending 等待下一轮
	Release(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Claim(ctx context.Context, limit int, now, staleBefore time.Time) ([]model.Outbox, error) {
	db := r.db.WithContext(ctx)
	var candidates []model.Outbox
	err := db.Where("status = ? OR (status = ? AND claimed_at < ?)", model.OutboxPending, model.OutboxProcessing, staleBefore).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]model.Outbox, 0, len(candidates))
	for _, ob := range candidates {
		q := db.Model(&model.Outbox{}).Where("id = ? AND status = ?", ob.ID, ob.Status)
		if ob.Status == model.OutboxProcessing {
			// 已被其他 worker 重新领取的行 claimed_at 会刷新，这里自然匹配不到
			q = q.Where("claimed_at < ?", staleBefore)
		}
		res := q.Updates(map[string]any{
			"status":     model.OutboxProcessing,
			"claimed_at": now,
			"attempts":   gorm.Expr("attempts + ?", 1),
		})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 1 {
			ob.Status = model.OutboxProcessing
			ob.ClaimedAt = &now
			ob.Attempts++
			claimed = append(claimed, ob)
		}
	}
	return claimed, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string, fanout int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxDone, "processed_at": at, "fanout_count": fanout}).Error
}

func (r *outboxRepository) Release(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ? AND status = ?", id, model.OutboxProcessing).
		Updates(map[string]any{"status": model.OutboxPending, "claimed_at": nil}).Error
}

func (r *outboxRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Cnt    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).
		Select("status, COUNT(*) AS cnt").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{model.OutboxPending: 0, model.OutboxProcessing: 0, model.OutboxDone: 0}
	for _, row := range rows {
		out[row.Status] = row.Cnt
	}
	return out, nil
}
