package model

import (
	"gorm.io/datatypes"
)

// swagger:model Question
type Question struct {
	BaseModel
	Category    string            `gorm:"size:100;index:idx_question_filter" json:"category"`
	Subcategory string            `gorm:"size:100;index:idx_question_filter" json:"subcategory"`
	Level       string            `gorm:"size:20;index:idx_question_filter" json:"level"`
	Question    string            `gorm:"type:text;not null" json:"question"`
	Options     datatypes.JSONMap `gorm:"type:json" json:"options"`
	CorrectAns  string            `gorm:"size:20;not null" json:"correctAns,omitempty"`
	Explanation string            `gorm:"type:text" json:"explanation,omitempty"`
	Visibility  bool              `gorm:"default:true;index" json:"visibility"`
	CreatedBy   uint              `gorm:"index;type:bigint unsigned" json:"createdBy"`
}

func (Question) TableName() string {
	return "questions"
}

// HasOption reports whether key is one of the question's option keys.
func (q *Question) HasOption(key string) bool {
	_, ok := q.Options[key]
	return ok
}

// Redacted returns a copy without the answer key and explanation, for live papers.
func (q Question) Redacted() Question {
	q.CorrectAns = ""
	q.Explanation = ""
	return q
}
