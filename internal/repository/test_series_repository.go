package repository

import (
	"context"
	"time"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

type TestSeriesRepository struct {
	DB *gorm.DB
}

func NewTestSeriesRepository(db *gorm.DB) *TestSeriesRepository {
	return &TestSeriesRepository{DB: db}
}

// Create inserts the contest and its join rows. Question rows themselves are not upserted.
func (r *TestSeriesRepository) Create(ctx context.Context, ts *model.TestSeries) error {
	return r.DB.WithContext(ctx).Omit("Questions.*").Create(ts).Error
}

func (r *TestSeriesRepository) FindByID(ctx context.Context, id uint) (*model.TestSeries, error) {
	var ts model.TestSeries
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("questions.id ASC") }).
		First(&ts, id).Error
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func (r *TestSeriesRepository) CodeInUse(ctx context.Context, code string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&model.TestSeries{}).Where("contest_code = ?", code)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Update saves scalar fields and replaces the question set.
func (r *TestSeriesRepository) Update(ctx context.Context, ts *model.TestSeries) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Save(ts).Error; err != nil {
			return err
		}
		return tx.Model(ts).Association("Questions").Replace(ts.Questions)
	})
}

func (r *TestSeriesRepository) Delete(ctx context.Context, ts *model.TestSeries) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(ts).Association("Questions").Clear(); err != nil {
			return err
		}
		return tx.Delete(ts).Error
	})
}

func (r *TestSeriesRepository) List(ctx context.Context, status model.ContestStatus, now time.Time, page, limit int) ([]model.TestSeries, int64, error) {
	var (
		items []model.TestSeries
		total int64
	)
	query := r.DB.WithContext(ctx).Model(&model.TestSeries{})
	switch status {
	case model.ContestUpcoming:
		query = query.Where("start_time > ?", now)
	case model.ContestOngoing:
		query = query.Where("start_time <= ? AND end_time > ?", now, now)
	case model.ContestPast:
		query = query.Where("end_time <= ?", now)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("start_time DESC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error
	return items, total, err
}

// ListExpiredWithOpenParticipations finds ended contests that still have unsubmitted attempts.
func (r *TestSeriesRepository) ListExpiredWithOpenParticipations(ctx context.Context, now time.Time) ([]model.TestSeries, error) {
	var items []model.TestSeries
	open := r.DB.WithContext(ctx).Model(&model.Participation{}).
		Select("DISTINCT test_series_id").
		Where("test_series_id IS NOT NULL AND submitted_at IS NULL AND end_time IS NULL")
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("questions.id ASC") }).
		Where("end_time <= ? AND id IN (?)", now, open).
		Find(&items).Error
	return items, err
}

// ListDueReminders returns contests starting within lead that have not been announced yet.
func (r *TestSeriesRepository) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]model.TestSeries, error) {
	var items []model.TestSeries
	err := r.DB.WithContext(ctx).
		Where("reminder_sent = ? AND start_time > ? AND start_time <= ?", false, now, now.Add(lead)).
		Find(&items).Error
	return items, err
}

// MarkReminderSent flips the flag once; false means another worker got there first.
func (r *TestSeriesRepository) MarkReminderSent(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.TestSeries{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	return res.RowsAffected == 1, res.Error
}
