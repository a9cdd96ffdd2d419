package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type NovelStatus string

const (
	NovelDraft     NovelStatus = "DRAFT"
	NovelPublished NovelStatus = "PUBLISHED"
)

func (s NovelStatus) Valid() bool { return s == NovelDraft || s == NovelPublished }

// Novel 小说；对外只暴露 PublicID
type Novel struct {
	ID              uint        `json:"-" gorm:"primaryKey"`
	PublicID        string      `json:"id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Title           string      `json:"title" gorm:"type:varchar(500);not null"`
	AuthorName      string      `json:"author_name" gorm:"type:varchar(255);not null"`
	Summary         string      `json:"novel_summary" gorm:"column:novel_summary;type:text;not null"`
	CoverImage      string      `json:"cover_image,omitempty" gorm:"type:varchar(1024)"`
	Categories      Categories  `json:"categories" gorm:"type:text"`
	Status          NovelStatus `json:"status" gorm:"type:varchar(16);not null;default:DRAFT;index"`
	ViewCount       int64       `json:"views" gorm:"not null;default:0"`
	LikeCount       int64       `json:"likes" gorm:"not null;default:0"`
	BookmarkCount   int64       `json:"bookmarks" gorm:"not null;default:0"`
	ChapterCount    int64       `json:"chapters_count" gorm:"not null;default:0"`
	SubscriberCount int64       `json:"subscribers_count" gorm:"not null;default:0"`
	CreatedBy       uint        `json:"created_by" gorm:"index;not null"`
	UpdatedBy       uint        `json:"updated_by" gorm:"not null"`
	CreatedAt       time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Novel) TableName() string { return "novels" }

// Categories 无序集合，写入前去重排序，保证序列化结果稳定
type Categories []string

// Normalize 去空白、去重、排序
func (c Categories) Normalize() Categories {
	seen := make(map[string]struct{}, len(c))
	out := make(Categories, 0, len(c))
	for _, s := range c {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c Categories) Has(name string) bool {
	for _, s := range c {
		if s == name {
			return true
		}
	}
	return false
}

// Value 以 JSON 数组落库；map 方式更新时同样生效
func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		c = Categories{}
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Categories) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("categories: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(c))
}
