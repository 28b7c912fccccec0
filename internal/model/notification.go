package model

import "gorm.io/datatypes"

type NotificationType string

const (
	NotifyContestCreated  NotificationType = "contest_created"
	NotifyContestReminder NotificationType = "contest_reminder"
	NotifyContestResult   NotificationType = "contest_result"
	NotifyHighScore       NotificationType = "high_score"
	NotifyPracticeResult  NotificationType = "practice_result"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID  uint              `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Title   string            `gorm:"size:200" json:"title"`
	Message string            `gorm:"type:text" json:"message"`
	Type    NotificationType  `gorm:"size:50;index" json:"type"`
	Data    datatypes.JSONMap `gorm:"type:json" json:"data,omitempty"`
	IsRead  bool              `gorm:"default:false;index" json:"isRead"`
}

func (Notification) TableName() string {
	return "notifications"
}
