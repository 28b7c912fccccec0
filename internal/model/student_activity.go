package model

import "time"

// StudentActivity is an append-only record of one answer selection.
type StudentActivity struct {
	BaseModel
	UserID         uint      `gorm:"index:idx_activity_user;type:bigint unsigned;not null" json:"userId"`
	QuestionID     uint      `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	TestSeriesID   *uint     `gorm:"index;type:bigint unsigned" json:"testSeriesId,omitempty"`
	FreePracticeID *uint     `gorm:"index;type:bigint unsigned" json:"freePracticeId,omitempty"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	SelectedAnswer *string   `gorm:"size:255" json:"selectedAnswer"`
}

func (StudentActivity) TableName() string {
	return "student_activities"
}
