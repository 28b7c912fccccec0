package repository

import (
	"context"
	"time"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

type FreePracticeRepository struct {
	DB *gorm.DB
}

func NewFreePracticeRepository(db *gorm.DB) *FreePracticeRepository {
	return &FreePracticeRepository{DB: db}
}

// Create stores the practice, snapshots its questions and opens the owner's participation.
func (r *FreePracticeRepository) Create(ctx context.Context, fp *model.FreePractice, p *model.Participation) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions.*").Create(fp).Error; err != nil {
			return err
		}
		p.FreePracticeID = &fp.ID
		return tx.Create(p).Error
	})
}

func (r *FreePracticeRepository) FindByID(ctx context.Context, id uint) (*model.FreePractice, error) {
	var fp model.FreePractice
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("questions.id ASC") }).
		First(&fp, id).Error
	if err != nil {
		return nil, err
	}
	return &fp, nil
}

func (r *FreePracticeRepository) SetEndTime(ctx context.Context, id uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.FreePractice{}).
		Where("id = ? AND end_time IS NULL", id).
		Update("end_time", at).Error
}

func (r *FreePracticeRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.FreePractice, int64, error) {
	var (
		items []model.FreePractice
		total int64
	)
	query := r.DB.WithContext(ctx).Model(&model.FreePractice{}).Where("created_by = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error
	return items, total, err
}

// ListSubmittedWithQuestions loads every finished practice of a user, for statistics.
func (r *FreePracticeRepository) ListSubmittedWithQuestions(ctx context.Context, userID uint) ([]model.FreePractice, error) {
	var items []model.FreePractice
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("created_by = ? AND end_time IS NOT NULL", userID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}
