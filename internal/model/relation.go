package model

import "time"

// RelationKind 用户与小说之间的关系类型；每种关系一张表，(user_id, novel_id) 唯一
type RelationKind int

const (
	RelationLike RelationKind = iota + 1
	RelationBookmark
	RelationSubscription
)

func (k RelationKind) String() string {
	switch k {
	case RelationLike:
		return "like"
	case RelationBookmark:
		return "bookmark"
	case RelationSubscription:
		return "subscription"
	}
	return "unknown"
}

// CounterColumn 对应 novels 表上的计数列
func (k RelationKind) CounterColumn() string {
	switch k {
	case RelationLike:
		return "like_count"
	case RelationBookmark:
		return "bookmark_count"
	case RelationSubscription:
		return "subscriber_count"
	}
	return ""
}

// Model 返回该关系对应的 gorm 模型（用于 Model/Delete）
func (k RelationKind) Model() any {
	switch k {
	case RelationLike:
		return &NovelLike{}
	case RelationBookmark:
		return &NovelBookmark{}
	case RelationSubscription:
		return &NovelSubscription{}
	}
	return nil
}

// NewRecord 构造一条待插入的关系记录
func (k RelationKind) NewRecord(userID uint, novelID string) any {
	switch k {
	case RelationLike:
		return &NovelLike{UserID: userID, NovelID: novelID}
	case RelationBookmark:
		return &NovelBookmark{UserID: userID, NovelID: novelID}
	case RelationSubscription:
		return &NovelSubscription{UserID: userID, NovelID: novelID}
	}
	return nil
}

// RelationKinds 全部关系类型
var RelationKinds = []RelationKind{RelationLike, RelationBookmark, RelationSubscription}

// NovelLike 点赞
type NovelLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:ux_like_user_novel,priority:1"`
	NovelID   string    `json:"novel_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_like_user_novel,priority:2;index:idx_like_novel"`
	CreatedAt time.Time `json:"created_at"`
}

func (NovelLike) TableName() string { return "novel_likes" }

// NovelBookmark 收藏
type NovelBookmark struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:ux_bookmark_user_novel,priority:1"`
	NovelID   string    `json:"novel_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_bookmark_user_novel,priority:2;index:idx_bookmark_novel"`
	CreatedAt time.Time `json:"created_at"`
}

func (NovelBookmark) TableName() string { return "novel_bookmarks" }

// NovelSubscription 订阅；新章节发布时按订阅扇出通知
type NovelSubscription struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:ux_subscription_user_novel,priority:1"`
	NovelID   string    `json:"novel_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_subscription_user_novel,priority:2;index:idx_subscription_novel"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (NovelSubscription) TableName() string { return "novel_subscriptions" }

// Subscriber 订阅者及其展示信息
type Subscriber struct {
	SubscriptionID uint      `json:"id"`
	User           UserBrief `json:"user"`
	SubscribedAt   time.Time `json:"subscribed_at"`
}

// SubscribedNovel 我的订阅列表条目
type SubscribedNovel struct {
	SubscriptionID uint      `json:"id"`
	SubscribedAt   time.Time `json:"subscribed_at"`
	Novel          Novel     `json:"novel"`
}
