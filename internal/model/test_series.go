package model

import "time"

type ContestStatus string

const (
	ContestUpcoming ContestStatus = "upcoming"
	ContestOngoing  ContestStatus = "ongoing"
	ContestPast     ContestStatus = "past"
)

// swagger:model TestSeries
type TestSeries struct {
	BaseModel
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	StartTime    time.Time  `gorm:"index" json:"startTime"`
	EndTime      time.Time  `gorm:"index" json:"endTime"`
	RequiresCode bool       `gorm:"default:false" json:"requiresCode"`
	ContestCode  *string    `gorm:"size:50;uniqueIndex" json:"-"`
	CreatedBy    uint       `gorm:"index;type:bigint unsigned" json:"createdBy"`
	ReminderSent bool       `gorm:"default:false" json:"-"`
	Questions    []Question `gorm:"many2many:test_series_questions;" json:"questions,omitempty"`
}

func (TestSeries) TableName() string {
	return "test_series"
}

func (t *TestSeries) Status(now time.Time) ContestStatus {
	switch {
	case now.Before(t.StartTime):
		return ContestUpcoming
	case now.Before(t.EndTime):
		return ContestOngoing
	default:
		return ContestPast
	}
}

func (t *TestSeries) HasStarted(now time.Time) bool {
	return !now.Before(t.StartTime)
}

func (t *TestSeries) HasEnded(now time.Time) bool {
	return !now.Before(t.EndTime)
}

func (t *TestSeries) QuestionIDs() []uint {
	ids := make([]uint, 0, len(t.Questions))
	for _, q := range t.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}
