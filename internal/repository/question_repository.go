package repository

import (
	"context"
	"time"

	"placeprep_backend/internal/model"

	"gorm.io/gorm"
)

// QuestionFilter narrows question listings. Empty fields are ignored.
type QuestionFilter struct {
	Category    string
	Subcategory string
	Level       string
	Visibility  *bool
	CreatedBy   uint
}

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (f QuestionFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Subcategory != "" {
		q = q.Where("subcategory = ?", f.Subcategory)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.Visibility != nil {
		q = q.Where("visibility = ?", *f.Visibility)
	}
	if f.CreatedBy > 0 {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	return q
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

// CreateBatch inserts all questions in one transaction; any failure rolls back the whole batch.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&questions, 200).Error
	})
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var questions []model.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *QuestionRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Question{}, id).Error
}

func (r *QuestionRepository) List(ctx context.Context, filter QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	var (
		questions []model.Question
		total     int64
	)
	query := filter.apply(r.DB.WithContext(ctx).Model(&model.Question{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&questions).Error
	return questions, total, err
}

// RandomVisible samples up to n visible questions matching filter.
func (r *QuestionRepository) RandomVisible(ctx context.Context, filter QuestionFilter, n int) ([]model.Question, error) {
	visible := true
	filter.Visibility = &visible
	var questions []model.Question
	err := filter.apply(r.DB.WithContext(ctx).Model(&model.Question{})).
		Order("RAND()").
		Limit(n).
		Find(&questions).Error
	return questions, err
}

type CategoryRow struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Count       int64  `json:"count"`
}

func (r *QuestionRepository) Categories(ctx context.Context) ([]CategoryRow, error) {
	var rows []CategoryRow
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Select("category, subcategory, COUNT(*) AS count").
		Where("visibility = ?", true).
		Group("category, subcategory").
		Order("category, subcategory").
		Scan(&rows).Error
	return rows, err
}

func (r *QuestionRepository) SetVisibility(ctx context.Context, ids []uint, visible bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id IN ?", ids).
		Update("visibility", visible).Error
}

// InContest reports whether any contest, running or not, references the question.
func (r *QuestionRepository) InContest(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Table("test_series_questions AS tsq").
		Joins("JOIN test_series ts ON ts.id = tsq.test_series_id").
		Where("tsq.question_id = ? AND ts.deleted_at IS NULL", id).
		Count(&n).Error
	return n > 0, err
}

// ReleaseQuestions makes ids visible again, skipping any question that a contest which has not
// ended still references.
func (r *QuestionRepository) ReleaseQuestions(ctx context.Context, ids []uint, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.DB.WithContext(ctx)
	res := db.Model(&model.Question{}).
		Where("id IN ?", ids).
		Where("visibility = ?", false).
		Where("id NOT IN (?)", r.unfinishedContestQuestions(db, now)).
		Update("visibility", true)
	return res.RowsAffected, res.Error
}

func (r *QuestionRepository) unfinishedContestQuestions(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Table("test_series_questions AS tsq").
		Select("tsq.question_id").
		Joins("JOIN test_series ts ON ts.id = tsq.test_series_id").
		Where("ts.end_time > ? AND ts.deleted_at IS NULL", now)
}

// RestoreEndedContestQuestions makes questions visible again once every contest using them has
// ended. Already-visible questions are untouched, so repeated runs are no-ops.
func (r *QuestionRepository) RestoreEndedContestQuestions(ctx context.Context, now time.Time) (int64, error) {
	db := r.DB.WithContext(ctx)
	ended := db.Table("test_series_questions AS tsq").
		Select("tsq.question_id").
		Joins("JOIN test_series ts ON ts.id = tsq.test_series_id").
		Where("ts.end_time <= ? AND ts.deleted_at IS NULL", now)
	live := r.unfinishedContestQuestions(db, now)

	res := db.Model(&model.Question{}).
		Where("visibility = ?", false).
		Where("id IN (?)", ended).
		Where("id NOT IN (?)", live).
		Update("visibility", true)
	return res.RowsAffected, res.Error
}
