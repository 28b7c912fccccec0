package model

type Bookmark struct {
	BaseModel
	UserID     uint     `gorm:"uniqueIndex:idx_bookmark_user_question;type:bigint unsigned;not null" json:"userId"`
	QuestionID uint     `gorm:"uniqueIndex:idx_bookmark_user_question;type:bigint unsigned;not null" json:"questionId"`
	Question   Question `gorm:"foreignKey:QuestionID" json:"question"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
