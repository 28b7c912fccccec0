package service

import (
	"context"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/repository"
)

// The interfaces below are satisfied by the gorm repositories and by in-memory fakes in tests.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*model.User, error)
	FindByResetToken(ctx context.Context, token string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
	ListVerifiedUserIDs(ctx context.Context) ([]uint, error)
}

type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, questions []model.Question) error
	FindByID(ctx context.Context, id uint) (*model.Question, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter repository.QuestionFilter, page, limit int) ([]model.Question, int64, error)
	RandomVisible(ctx context.Context, filter repository.QuestionFilter, n int) ([]model.Question, error)
	Categories(ctx context.Context) ([]repository.CategoryRow, error)
	SetVisibility(ctx context.Context, ids []uint, visible bool) error
	InContest(ctx context.Context, id uint) (bool, error)
	ReleaseQuestions(ctx context.Context, ids []uint, now time.Time) (int64, error)
	RestoreEndedContestQuestions(ctx context.Context, now time.Time) (int64, error)
}

type BookmarkStore interface {
	Exists(ctx context.Context, userID, questionID uint) (bool, error)
	Create(ctx context.Context, b *model.Bookmark) error
	Delete(ctx context.Context, userID, questionID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Bookmark, error)
}

type TestSeriesStore interface {
	Create(ctx context.Context, ts *model.TestSeries) error
	FindByID(ctx context.Context, id uint) (*model.TestSeries, error)
	CodeInUse(ctx context.Context, code string, excludeID uint) (bool, error)
	Update(ctx context.Context, ts *model.TestSeries) error
	Delete(ctx context.Context, ts *model.TestSeries) error
	List(ctx context.Context, status model.ContestStatus, now time.Time, page, limit int) ([]model.TestSeries, int64, error)
	ListExpiredWithOpenParticipations(ctx context.Context, now time.Time) ([]model.TestSeries, error)
	ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]model.TestSeries, error)
	MarkReminderSent(ctx context.Context, id uint) (bool, error)
}

type ParticipationStore interface {
	Create(ctx context.Context, p *model.Participation) error
	FindByID(ctx context.Context, id uint) (*model.Participation, error)
	FindLatestForContest(ctx context.Context, userID, testSeriesID uint) (*model.Participation, error)
	FindForPractice(ctx context.Context, userID, freePracticeID uint) (*model.Participation, error)
	ClaimForClose(ctx context.Context, id uint, at time.Time) (bool, error)
	CloseWithActivities(ctx context.Context, id uint, at time.Time, activities []model.StudentActivity) (bool, error)
	IncrementViolations(ctx context.Context, id uint) (int, error)
	ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error)
	ListOpenByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error)
	ListClosedByUser(ctx context.Context, userID uint, page, limit int) ([]model.Participation, int64, error)
}

type ActivityStore interface {
	CreateBatch(ctx context.Context, activities []model.StudentActivity) error
	ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.StudentActivity, error)
	ListByUserAndTestSeries(ctx context.Context, userID, testSeriesID uint) ([]model.StudentActivity, error)
	ListByUserAndPractice(ctx context.Context, userID, freePracticeID uint) ([]model.StudentActivity, error)
	ListPracticeByUser(ctx context.Context, userID uint) ([]model.StudentActivity, error)
}

type FreePracticeStore interface {
	Create(ctx context.Context, fp *model.FreePractice, p *model.Participation) error
	FindByID(ctx context.Context, id uint) (*model.FreePractice, error)
	SetEndTime(ctx context.Context, id uint, at time.Time) error
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.FreePractice, int64, error)
	ListSubmittedWithQuestions(ctx context.Context, userID uint) ([]model.FreePractice, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, items []model.Notification) error
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) (bool, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)
}

var (
	_ UserStore          = (*repository.UserRepository)(nil)
	_ QuestionStore      = (*repository.QuestionRepository)(nil)
	_ BookmarkStore      = (*repository.BookmarkRepository)(nil)
	_ TestSeriesStore    = (*repository.TestSeriesRepository)(nil)
	_ ParticipationStore = (*repository.ParticipationRepository)(nil)
	_ ActivityStore      = (*repository.ActivityRepository)(nil)
	_ FreePracticeStore  = (*repository.FreePracticeRepository)(nil)
	_ NotificationStore  = (*repository.NotificationRepository)(nil)
)
