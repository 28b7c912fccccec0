package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"
	"placeprep_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Publisher pushes live messages to connected users.
type Publisher interface {
	Publish(ctx context.Context, userIDs []uint, msg WSMessage) error
}

type NotificationPage struct {
	List        []model.Notification `json:"list"`
	Total       int64                `json:"total"`
	UnreadCount int64                `json:"unreadCount"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
}

// NotificationService persists in-app notifications, pushes them live and sends the matching
// emails in the background.
type NotificationService struct {
	Repo      NotificationStore
	Users     UserStore
	Publisher Publisher
	Mailer    Mailer

	highScore atomic.Int64
	// async runs email deliveries off the request path.
	async func(func())
}

func NewNotificationService(repo NotificationStore, users UserStore, publisher Publisher, mailer Mailer, highScoreThreshold int) *NotificationService {
	s := &NotificationService{
		Repo:      repo,
		Users:     users,
		Publisher: publisher,
		Mailer:    mailer,
		async:     func(f func()) { go f() },
	}
	s.SetHighScoreThreshold(highScoreThreshold)
	return s
}

func (s *NotificationService) SetHighScoreThreshold(pct int) {
	if pct <= 0 || pct > 100 {
		pct = 90
	}
	s.highScore.Store(int64(pct))
}

func (s *NotificationService) HighScoreThreshold() int {
	return int(s.highScore.Load())
}

func (s *NotificationService) List(ctx context.Context, userID uint, page, limit int) (*NotificationPage, error) {
	items, total, err := s.Repo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.Repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{List: items, Total: total, UnreadCount: unread, Page: page, Limit: limit}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	ok, err := s.Repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	ok, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotFound
	}
	return nil
}

// deliver stores the notifications and pushes each to its owner. Push failures are logged only.
func (s *NotificationService) deliver(ctx context.Context, items []model.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.Repo.CreateBatch(ctx, items); err != nil {
		monitoring.NotificationCounter.WithLabelValues("inapp", "failed").Inc()
		return err
	}
	monitoring.NotificationCounter.WithLabelValues("inapp", "sent").Add(float64(len(items)))
	if s.Publisher == nil {
		return nil
	}
	for i := range items {
		n := items[i]
		msg := WSMessage{Type: "NOTIFICATION", Data: n}
		if err := s.Publisher.Publish(ctx, []uint{n.UserID}, msg); err != nil {
			monitoring.NotificationCounter.WithLabelValues("ws", "failed").Inc()
			logger.Log.Warn("Notification push failed", zap.Error(err), zap.Uint("userId", n.UserID))
			continue
		}
		monitoring.NotificationCounter.WithLabelValues("ws", "sent").Inc()
	}
	return nil
}

func (s *NotificationService) mail(kind string, send func() error) {
	if s.Mailer == nil {
		return
	}
	s.async(func() {
		if err := send(); err != nil {
			monitoring.NotificationCounter.WithLabelValues("email", "failed").Inc()
			logger.Log.Warn("Email delivery failed", zap.Error(err), zap.String("kind", kind))
			return
		}
		monitoring.NotificationCounter.WithLabelValues("email", "sent").Inc()
	})
}

func (s *NotificationService) ContestResult(ctx context.Context, user *model.User, ts *model.TestSeries, result *ContestResult) error {
	data := datatypes.JSONMap{
		"testSeriesId":    ts.ID,
		"participationId": result.ParticipationID,
		"correct":         result.Correct,
		"totalQuestions":  result.TotalQuestions,
		"percentage":      result.Percentage,
		"timeTaken":       result.TimeTaken,
		"autoSubmitted":   result.AutoSubmitted,
	}
	message := fmt.Sprintf("You scored %d/%d (%d%%) in %s.", result.Correct, result.TotalQuestions, result.Percentage, ts.Title)
	if result.AutoSubmitted {
		message = fmt.Sprintf("Your attempt in %s was submitted automatically. You scored %d/%d (%d%%).",
			ts.Title, result.Correct, result.TotalQuestions, result.Percentage)
	}
	items := []model.Notification{{
		UserID:  user.ID,
		Title:   "Contest result: " + ts.Title,
		Message: message,
		Type:    model.NotifyContestResult,
		Data:    data,
	}}
	if result.TotalQuestions > 0 && result.Percentage >= s.HighScoreThreshold() {
		items = append(items, model.Notification{
			UserID:  user.ID,
			Title:   "Great score!",
			Message: fmt.Sprintf("You scored %d%% in %s.", result.Percentage, ts.Title),
			Type:    model.NotifyHighScore,
			Data:    datatypes.JSONMap{"testSeriesId": ts.ID, "percentage": result.Percentage},
		})
	}

	recipient := *user
	s.mail("contest_result", func() error { return s.Mailer.SendContestResult(&recipient, ts, result) })
	return s.deliver(ctx, items)
}

func (s *NotificationService) broadcastContest(ctx context.Context, ts *model.TestSeries, kind model.NotificationType, title, message string, reminder bool) error {
	ids, err := s.Users.ListVerifiedUserIDs(ctx)
	if err != nil {
		return err
	}
	items := make([]model.Notification, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.Notification{
			UserID:  id,
			Title:   title,
			Message: message,
			Type:    kind,
			Data: datatypes.JSONMap{
				"testSeriesId": ts.ID,
				"startTime":    ts.StartTime,
				"endTime":      ts.EndTime,
			},
		})
	}
	if err := s.deliver(ctx, items); err != nil {
		return err
	}

	if s.Mailer != nil && len(ids) > 0 {
		contest := *ts
		s.async(func() {
			users, err := s.Users.FindByIDs(context.Background(), ids)
			if err != nil {
				logger.Log.Warn("Loading announcement recipients failed", zap.Error(err))
				return
			}
			for i := range users {
				u := users[i]
				if err := s.Mailer.SendContestAnnouncement(&u, &contest, reminder); err != nil {
					monitoring.NotificationCounter.WithLabelValues("email", "failed").Inc()
					logger.Log.Warn("Announcement email failed", zap.Error(err), zap.Uint("userId", u.ID))
					continue
				}
				monitoring.NotificationCounter.WithLabelValues("email", "sent").Inc()
			}
		})
	}
	return nil
}

func (s *NotificationService) ContestAnnounced(ctx context.Context, ts *model.TestSeries) error {
	return s.broadcastContest(ctx, ts, model.NotifyContestCreated,
		"New contest: "+ts.Title,
		fmt.Sprintf("%s starts at %s.", ts.Title, ts.StartTime.Format(util.TimeFormat)),
		false)
}

func (s *NotificationService) ContestReminder(ctx context.Context, ts *model.TestSeries) error {
	return s.broadcastContest(ctx, ts, model.NotifyContestReminder,
		"Starting soon: "+ts.Title,
		fmt.Sprintf("%s starts at %s. Good luck!", ts.Title, ts.StartTime.Format(util.TimeFormat)),
		true)
}

func (s *NotificationService) PracticeResult(ctx context.Context, userID uint, fp *model.FreePractice, result *PracticeResult) error {
	return s.deliver(ctx, []model.Notification{{
		UserID:  userID,
		Title:   "Practice completed",
		Message: fmt.Sprintf("You scored %d/%d (%d%%) in %s.", result.Correct, result.TotalQuestions, result.Percentage, fp.Title),
		Type:    model.NotifyPracticeResult,
		Data: datatypes.JSONMap{
			"freePracticeId": fp.ID,
			"percentage":     result.Percentage,
		},
	}})
}

var _ ResultNotifier = (*NotificationService)(nil)
