package model

import "time"

// Notification 站内通知；(user_id, event_id) 唯一，重放同一事件不会产生重复通知
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index:idx_notification_user_read,priority:1;uniqueIndex:ux_notification_user_event,priority:1"`
	EventID   string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:ux_notification_user_event,priority:2"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false;index:idx_notification_user_read,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
