package model

import "time"

// ReadingProgress 阅读进度；NovelTitle/CoverImage/Author 为创建时的快照，之后不随小说变更
type ReadingProgress struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:ux_progress_user_novel,priority:1"`
	NovelID     string     `json:"novel_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_progress_user_novel,priority:2;index:idx_progress_novel"`
	NovelTitle  string     `json:"novel_title" gorm:"type:varchar(500)"`
	CoverImage  string     `json:"cover_image,omitempty" gorm:"type:varchar(1024)"`
	Author      string     `json:"author" gorm:"type:varchar(255)"`
	LastChapter int        `json:"last_chapter" gorm:"not null"`
	IsCompleted bool       `json:"is_completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"index"`
}

func (ReadingProgress) TableName() string { return "reading_progress" }
