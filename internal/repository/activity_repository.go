package repository

import (
	"context"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) CreateBatch(ctx context.Context, activities []model.StudentActivity) error {
	if len(activities) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&activities).Error
}

// Activity listings are ordered oldest first; ties on timestamp fall back to insertion order.

func (r *ActivityRepository) ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.StudentActivity, error) {
	var items []model.StudentActivity
	err := r.DB.WithContext(ctx).
		Where("test_series_id = ?", testSeriesID).
		Order("timestamp ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *ActivityRepository) ListByUserAndTestSeries(ctx context.Context, userID, testSeriesID uint) ([]model.StudentActivity, error) {
	var items []model.StudentActivity
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND test_series_id = ?", userID, testSeriesID).
		Order("timestamp ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *ActivityRepository) ListByUserAndPractice(ctx context.Context, userID, freePracticeID uint) ([]model.StudentActivity, error) {
	var items []model.StudentActivity
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND free_practice_id = ?", userID, freePracticeID).
		Order("timestamp ASC, id ASC").
		Find(&items).Error
	return items, err
}

// ListPracticeByUser returns every practice answer of a user across sessions.
func (r *ActivityRepository) ListPracticeByUser(ctx context.Context, userID uint) ([]model.StudentActivity, error) {
	var items []model.StudentActivity
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND free_practice_id IS NOT NULL", userID).
		Order("timestamp ASC, id ASC").
		Find(&items).Error
	return items, err
}
