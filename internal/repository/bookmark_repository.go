package repository

import (
	"context"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

type BookmarkRepository struct {
	DB *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{DB: db}
}

func (r *BookmarkRepository) Exists(ctx context.Context, userID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Bookmark{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *BookmarkRepository) Create(ctx context.Context, b *model.Bookmark) error {
	return r.DB.WithContext(ctx).Omit("Question").Create(b).Error
}

// Delete removes the bookmark permanently so it can be created again later.
func (r *BookmarkRepository) Delete(ctx context.Context, userID, questionID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Unscoped().
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Delete(&model.Bookmark{})
	return res.RowsAffected > 0, res.Error
}

func (r *BookmarkRepository) ListByUser(ctx context.Context, userID uint) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := r.DB.WithContext(ctx).
		Preload("Question").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}
