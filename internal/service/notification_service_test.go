package service

import (
	"context"
	"sync"
	"testing"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[uint][]WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, userIDs []uint, msg WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = map[uint][]WSMessage{}
	}
	for _, id := range userIDs {
		p.messages[id] = append(p.messages[id], msg)
	}
	return nil
}

func newNotificationFixture(t *testing.T) (*NotificationService, *fakeNotifications, *recordingPublisher, *recordingMailer) {
	t.Helper()
	repo := &fakeNotifications{}
	users := newFakeUsers(
		model.User{BaseModel: model.BaseModel{ID: 10}, FullName: "Asha", Email: "asha@example.com", IsVerified: true},
		model.User{BaseModel: model.BaseModel{ID: 20}, FullName: "Ravi", Email: "ravi@example.com", IsVerified: true},
		model.User{BaseModel: model.BaseModel{ID: 30}, FullName: "Pending", Email: "pending@example.com"},
	)
	publisher := &recordingPublisher{}
	mailer := &recordingMailer{}
	svc := NewNotificationService(repo, users, publisher, mailer, 90)
	svc.async = syncRun
	return svc, repo, publisher, mailer
}

func TestNotifyContestResult(t *testing.T) {
	svc, repo, publisher, mailer := newNotificationFixture(t)
	ctx := context.Background()
	ts := contestFixture()
	user := &model.User{BaseModel: model.BaseModel{ID: 10}, FullName: "Asha"}

	err := svc.ContestResult(ctx, user, ts, &ContestResult{
		ParticipationID: 1,
		ScoreResult:     ScoreResult{TotalQuestions: 3, Correct: 2, Percentage: 67},
		TimeTaken:       4.5,
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 1)
	assert.Equal(t, model.NotifyContestResult, repo.items[0].Type)
	assert.Equal(t, 1, mailer.results)
	require.Len(t, publisher.messages[10], 1)
	assert.Equal(t, "NOTIFICATION", publisher.messages[10][0].Type)

	err = svc.ContestResult(ctx, user, ts, &ContestResult{
		ScoreResult: ScoreResult{TotalQuestions: 3, Correct: 3, Percentage: 100},
	})
	require.NoError(t, err)
	require.Len(t, repo.items, 3)
	assert.Equal(t, model.NotifyHighScore, repo.items[2].Type)
}

func TestHighScoreThreshold(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture(t)
	svc.SetHighScoreThreshold(60)
	assert.Equal(t, 60, svc.HighScoreThreshold())

	err := svc.ContestResult(context.Background(), &model.User{BaseModel: model.BaseModel{ID: 10}}, contestFixture(), &ContestResult{
		ScoreResult: ScoreResult{TotalQuestions: 3, Correct: 2, Percentage: 67},
	})
	require.NoError(t, err)
	assert.Len(t, repo.items, 2)

	svc.SetHighScoreThreshold(150)
	assert.Equal(t, 90, svc.HighScoreThreshold())
}

func TestNotifyContestAnnouncedReachesVerifiedUsers(t *testing.T) {
	svc, repo, publisher, mailer := newNotificationFixture(t)

	require.NoError(t, svc.ContestAnnounced(context.Background(), contestFixture()))

	require.Len(t, repo.items, 2)
	for _, n := range repo.items {
		assert.Equal(t, model.NotifyContestCreated, n.Type)
		assert.NotEqual(t, uint(30), n.UserID)
	}
	assert.Len(t, publisher.messages[10], 1)
	assert.Empty(t, publisher.messages[30])
	assert.Equal(t, 2, mailer.announcements)

	require.NoError(t, svc.ContestReminder(context.Background(), contestFixture()))
	assert.Equal(t, model.NotifyContestReminder, repo.items[3].Type)
}

func TestNotificationInbox(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture(t)
	ctx := context.Background()
	fp := &model.FreePractice{BaseModel: model.BaseModel{ID: 3}, Title: "Ratios"}
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.PracticeResult(ctx, 10, fp, &PracticeResult{ScoreResult: ScoreResult{TotalQuestions: 5, Correct: 4, Percentage: 80}}))
	}
	require.NoError(t, svc.PracticeResult(ctx, 20, fp, &PracticeResult{}))

	page, err := svc.List(ctx, 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(3), page.UnreadCount)

	first := repo.items[0].ID
	require.NoError(t, svc.MarkRead(ctx, 10, first))
	assert.ErrorIs(t, svc.MarkRead(ctx, 20, first), util.ErrNotFound, "notifications are scoped to their owner")

	n, err := svc.MarkAllRead(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err = svc.List(ctx, 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.UnreadCount)

	require.NoError(t, svc.Delete(ctx, 10, first))
	assert.ErrorIs(t, svc.Delete(ctx, 10, first), util.ErrNotFound)
}
