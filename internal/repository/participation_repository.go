package repository

import (
	"context"
	"time"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

type ParticipationRepository struct {
	DB *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{DB: db}
}

func (r *ParticipationRepository) Create(ctx context.Context, p *model.Participation) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *ParticipationRepository) FindByID(ctx context.Context, id uint) (*model.Participation, error) {
	var p model.Participation
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindLatestForContest returns the user's most recent participation in a contest.
func (r *ParticipationRepository) FindLatestForContest(ctx context.Context, userID, testSeriesID uint) (*model.Participation, error) {
	var p model.Participation
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND test_series_id = ?", userID, testSeriesID).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipationRepository) FindForPractice(ctx context.Context, userID, freePracticeID uint) (*model.Participation, error) {
	var p model.Participation
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND free_practice_id = ?", userID, freePracticeID).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ClaimForClose closes an open participation at the given instant. Only the caller whose
// conditional update matched the row gets true; everyone else must treat the close as done.
func (r *ParticipationRepository) ClaimForClose(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Participation{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(map[string]interface{}{
			"end_time":     at,
			"submitted_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CloseWithActivities claims the participation and appends the final answers in one
// transaction. When the claim is lost nothing is written and false is returned.
func (r *ParticipationRepository) CloseWithActivities(ctx context.Context, id uint, at time.Time, activities []model.StudentActivity) (bool, error) {
	claimed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Participation{}).
			Where("id = ? AND submitted_at IS NULL", id).
			Updates(map[string]interface{}{
				"end_time":     at,
				"submitted_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		claimed = true
		if len(activities) == 0 {
			return nil
		}
		return tx.Create(&activities).Error
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// IncrementViolations bumps the counter atomically and returns the new value.
func (r *ParticipationRepository) IncrementViolations(ctx context.Context, id uint) (int, error) {
	db := r.DB.WithContext(ctx)
	res := db.Model(&model.Participation{}).
		Where("id = ?", id).
		UpdateColumn("violations", gorm.Expr("violations + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var violations int
	err := db.Model(&model.Participation{}).
		Where("id = ?", id).
		Pluck("violations", &violations).Error
	return violations, err
}

func (r *ParticipationRepository) ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error) {
	var items []model.Participation
	err := r.DB.WithContext(ctx).
		Where("test_series_id = ?", testSeriesID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *ParticipationRepository) ListOpenByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error) {
	var items []model.Participation
	err := r.DB.WithContext(ctx).
		Where("test_series_id = ? AND submitted_at IS NULL AND end_time IS NULL", testSeriesID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *ParticipationRepository) ListClosedByUser(ctx context.Context, userID uint, page, limit int) ([]model.Participation, int64, error) {
	var (
		items []model.Participation
		total int64
	)
	query := r.DB.WithContext(ctx).Model(&model.Participation{}).
		Where("user_id = ? AND submitted_at IS NOT NULL", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("submitted_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error
	return items, total, err
}
