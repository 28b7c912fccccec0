package service

import (
	"context"
	"fmt"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"
	"placeprep_backend/pkg/monitoring"
	"placeprep_backend/pkg/tracing"

	"go.uber.org/zap"
)

// ResultNotifier delivers contest and practice events to users. Implementations must not
// block on slow channels such as email.
type ResultNotifier interface {
	ContestResult(ctx context.Context, user *model.User, ts *model.TestSeries, result *ContestResult) error
	ContestAnnounced(ctx context.Context, ts *model.TestSeries) error
	ContestReminder(ctx context.Context, ts *model.TestSeries) error
	PracticeResult(ctx context.Context, userID uint, fp *model.FreePractice, result *PracticeResult) error
}

type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, testSeriesID uint)
}

type SweepReport struct {
	Contests          int   `json:"contests"`
	Closed            int   `json:"closed"`
	Skipped           int   `json:"skipped"`
	Failed            int   `json:"failed"`
	QuestionsRestored int64 `json:"questionsRestored"`
	Reminders         int   `json:"reminders"`
}

// AutoSubmitService closes participations left open after their contest ended, restores
// question visibility and sends start reminders.
type AutoSubmitService struct {
	Contests       TestSeriesStore
	Participations ParticipationStore
	Activities     ActivityStore
	Questions      QuestionStore
	Users          UserStore
	Leaderboard    LeaderboardInvalidator
	Notifier       ResultNotifier
	ReminderLead   time.Duration
	Now            func() time.Time
}

func NewAutoSubmitService(
	contests TestSeriesStore,
	participations ParticipationStore,
	activities ActivityStore,
	questions QuestionStore,
	users UserStore,
	leaderboard LeaderboardInvalidator,
	notifier ResultNotifier,
	reminderLead time.Duration,
) *AutoSubmitService {
	return &AutoSubmitService{
		Contests:       contests,
		Participations: participations,
		Activities:     activities,
		Questions:      questions,
		Users:          users,
		Leaderboard:    leaderboard,
		Notifier:       notifier,
		ReminderLead:   reminderLead,
		Now:            time.Now,
	}
}

// Sweep runs one pass. A single "now" is used throughout so every participation of a contest
// is closed at the same instant. Failures are isolated per participation.
func (s *AutoSubmitService) Sweep(ctx context.Context) (SweepReport, error) {
	ctx, span := tracing.StartSpan(ctx, "AutoSubmitService.Sweep")
	defer span.End()

	started := time.Now()
	defer func() { monitoring.SweepDuration.Observe(time.Since(started).Seconds()) }()

	now := s.Now()
	var report SweepReport

	contests, err := s.Contests.ListExpiredWithOpenParticipations(ctx, now)
	if err != nil {
		return report, err
	}
	report.Contests = len(contests)

	for i := range contests {
		s.sweepContest(ctx, &contests[i], now, &report)
	}

	restored, err := s.Questions.RestoreEndedContestQuestions(ctx, now)
	if err != nil {
		logger.Log.Error("Question visibility restore failed", zap.Error(err))
	}
	report.QuestionsRestored = restored

	report.Reminders = s.sendReminders(ctx, now)

	logger.Log.Info("Sweep finished",
		zap.Int("contests", report.Contests),
		zap.Int("closed", report.Closed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("questionsRestored", report.QuestionsRestored),
		zap.Int("reminders", report.Reminders),
	)
	return report, nil
}

func (s *AutoSubmitService) sweepContest(ctx context.Context, ts *model.TestSeries, now time.Time, report *SweepReport) {
	open, err := s.Participations.ListOpenByTestSeries(ctx, ts.ID)
	if err != nil {
		logger.Log.Error("Listing open participations failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
		report.Failed++
		monitoring.AutoSubmissions.WithLabelValues("failed").Inc()
		return
	}

	closed := 0
	for i := range open {
		p := &open[i]
		ok, err := s.autoSubmit(ctx, ts, p, now)
		if ok {
			closed++
		}
		switch {
		case err != nil:
			report.Failed++
			monitoring.AutoSubmissions.WithLabelValues("failed").Inc()
			logger.Log.Error("Auto-submit failed",
				zap.Error(err),
				zap.Uint("testSeriesId", ts.ID),
				zap.Uint("participationId", p.ID),
			)
		case ok:
			report.Closed++
			monitoring.AutoSubmissions.WithLabelValues("closed").Inc()
		default:
			report.Skipped++
			monitoring.AutoSubmissions.WithLabelValues("skipped").Inc()
		}
	}

	if closed > 0 && s.Leaderboard != nil {
		s.Leaderboard.Invalidate(ctx, ts.ID)
	}
}

// autoSubmit returns false when someone else closed the participation first. A true result
// with an error means the participation was closed but its result was never sent.
func (s *AutoSubmitService) autoSubmit(ctx context.Context, ts *model.TestSeries, p *model.Participation, now time.Time) (bool, error) {
	claimed, err := s.Participations.ClaimForClose(ctx, p.ID, now)
	if err != nil || !claimed {
		return false, err
	}

	activities, err := s.Activities.ListByUserAndTestSeries(ctx, p.UserID, ts.ID)
	if err != nil {
		return true, fmt.Errorf("load answers: %w", err)
	}
	score := ScoreAnswers(ts.Questions, LatestAnswers(activities))
	result := &ContestResult{
		ParticipationID: p.ID,
		TestSeriesID:    ts.ID,
		Title:           ts.Title,
		ScoreResult:     score,
		TimeTaken:       util.AutoSubmittedTimeTaken,
		Violations:      p.Violations,
		SubmittedAt:     now,
		AutoSubmitted:   true,
	}

	if s.Notifier == nil {
		return true, nil
	}
	user, err := s.Users.FindByID(ctx, p.UserID)
	if err != nil {
		logger.Log.Warn("Auto-submitted user not found", zap.Error(err), zap.Uint("userId", p.UserID))
		return true, nil
	}
	if err := s.Notifier.ContestResult(ctx, user, ts, result); err != nil {
		logger.Log.Warn("Auto-submit notification failed", zap.Error(err), zap.Uint("participationId", p.ID))
	}
	return true, nil
}

func (s *AutoSubmitService) sendReminders(ctx context.Context, now time.Time) int {
	if s.Notifier == nil || s.ReminderLead <= 0 {
		return 0
	}
	due, err := s.Contests.ListDueReminders(ctx, now, s.ReminderLead)
	if err != nil {
		logger.Log.Error("Listing due reminders failed", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range due {
		ts := &due[i]
		marked, err := s.Contests.MarkReminderSent(ctx, ts.ID)
		if err != nil {
			logger.Log.Error("Marking reminder failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
			continue
		}
		if !marked {
			continue
		}
		if err := s.Notifier.ContestReminder(ctx, ts); err != nil {
			logger.Log.Warn("Contest reminder failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
			continue
		}
		sent++
	}
	return sent
}
