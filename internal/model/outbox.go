package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 章节发布事件外发盒；与章节在同一事务内写入，由 FanoutWorker 异步扇出通知
type Outbox struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ChapterID    uint       `json:"chapter_id" gorm:"index;not null"`
	NovelID      string     `json:"novel_id" gorm:"type:varchar(36);index:idx_outbox_novel;not null"`
	ChapterTitle string     `json:"chapter_title" gorm:"type:varchar(500);not null"`
	Status       string     `json:"status" gorm:"type:varchar(16);index;not null"` // pending, processing, done
	Attempts     int        `json:"attempts" gorm:"not null;default:0"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	FanoutCount  int64      `json:"fanout_count"`
}

func (Outbox) TableName() string { return "chapter_outbox" }

// All 需要迁移的全部模型
func All() []any {
	return []any{
		&User{},
		&Novel{},
		&Chapter{},
		&NovelLike{},
		&NovelBookmark{},
		&NovelSubscription{},
		&ReadingProgress{},
		&Notification{},
		&Outbox{},
	}
}
