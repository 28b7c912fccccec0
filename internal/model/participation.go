package model

import "time"

// Participation is one user's attempt window for a contest or a practice session.
// Exactly one of TestSeriesID and FreePracticeID is set.
type Participation struct {
	BaseModel
	UserID         uint       `gorm:"index:idx_participation_user_ts;type:bigint unsigned;not null" json:"userId"`
	TestSeriesID   *uint      `gorm:"index:idx_participation_user_ts;type:bigint unsigned" json:"testSeriesId,omitempty"`
	FreePracticeID *uint      `gorm:"index;type:bigint unsigned" json:"freePracticeId,omitempty"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	SubmittedAt    *time.Time `gorm:"index" json:"submittedAt,omitempty"`
	Violations     int        `gorm:"default:0" json:"violations"`
	PracticeTest   bool       `gorm:"default:false" json:"practiceTest"`
	Contest        bool       `gorm:"default:false" json:"contest"`
}

func (Participation) TableName() string {
	return "participations"
}

func (p *Participation) IsOpen() bool {
	return p.SubmittedAt == nil && p.EndTime == nil
}
