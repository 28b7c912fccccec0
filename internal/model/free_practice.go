package model

import "time"

// swagger:model FreePractice
type FreePractice struct {
	BaseModel
	Title       string     `gorm:"size:200" json:"title"`
	Category    string     `gorm:"size:100" json:"category"`
	Subcategory string     `gorm:"size:100" json:"subcategory"`
	Level       string     `gorm:"size:20" json:"level"`
	CreatedBy   uint       `gorm:"index;type:bigint unsigned" json:"createdBy"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Questions   []Question `gorm:"many2many:free_practice_questions;" json:"questions,omitempty"`
}

func (FreePractice) TableName() string {
	return "free_practices"
}
