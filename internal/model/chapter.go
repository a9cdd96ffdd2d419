package model

import "time"

// Chapter 章节；(novel_id, chapter_number) 唯一
type Chapter struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	NovelID       string    `json:"novel_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_chapter_novel_number,priority:1"`
	ChapterNumber int       `json:"chapter_number" gorm:"not null;uniqueIndex:ux_chapter_novel_number,priority:2"`
	Name          string    `json:"name" gorm:"type:varchar(255)"`
	Title         string    `json:"title" gorm:"type:varchar(500);not null"`
	ChapterType   string    `json:"chapter_type" gorm:"type:varchar(100)"`
	Thumbnail     string    `json:"thumbnail,omitempty" gorm:"type:varchar(1024)"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	ViewCount     int64     `json:"views" gorm:"not null;default:0"`
	CreatedBy     uint      `json:"created_by" gorm:"index;not null"`
	UpdatedBy     uint      `json:"updated_by" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Chapter) TableName() string { return "chapters" }

// ChapterRef 导航用的章节摘要
type ChapterRef struct {
	ID            uint   `json:"id"`
	ChapterNumber int    `json:"chapter_number"`
	Name          string `json:"name"`
	Title         string `json:"title"`
}
