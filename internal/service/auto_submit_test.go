package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvalidator struct {
	ids []uint
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, testSeriesID uint) {
	r.ids = append(r.ids, testSeriesID)
}

type sweepFixture struct {
	svc            *AutoSubmitService
	contests       *fakeContests
	participations *fakeParticipations
	activities     *fakeActivities
	notifier       *recordingNotifier
	invalidator    *recordingInvalidator
	now            time.Time
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	ts := contestFixture()
	now := ts.EndTime.Add(10 * time.Minute)
	submitted := ts.StartTime.Add(30 * time.Minute)

	activities := &fakeActivities{}
	activities.add(
		answer(0, 10, 1, ts.StartTime.Add(time.Minute), "A"),
		answer(0, 10, 2, ts.StartTime.Add(2*time.Minute), "C"),
		answer(0, 20, 1, ts.StartTime.Add(time.Minute), "B"),
	)
	participations := newFakeParticipations(activities,
		model.Participation{BaseModel: model.BaseModel{ID: 1}, UserID: 10, TestSeriesID: uintPtr(1), StartTime: ts.StartTime, Contest: true},
		model.Participation{BaseModel: model.BaseModel{ID: 2}, UserID: 20, TestSeriesID: uintPtr(1), StartTime: ts.StartTime, Contest: true},
		model.Participation{BaseModel: model.BaseModel{ID: 3}, UserID: 30, TestSeriesID: uintPtr(1), StartTime: ts.StartTime, Contest: true,
			EndTime: timePtr(submitted), SubmittedAt: timePtr(submitted)},
	)
	contests := newFakeContests(*ts)
	users := newFakeUsers(
		model.User{BaseModel: model.BaseModel{ID: 10}, FullName: "Asha", IsVerified: true},
		model.User{BaseModel: model.BaseModel{ID: 20}, FullName: "Ravi", IsVerified: true},
		model.User{BaseModel: model.BaseModel{ID: 30}, FullName: "Meera", IsVerified: true},
	)
	questions := newFakeQuestions()
	questions.restored = 3
	notifier := &recordingNotifier{}
	invalidator := &recordingInvalidator{}

	svc := NewAutoSubmitService(contests, participations, activities, questions, users, invalidator, notifier, 15*time.Minute)
	svc.Now = fixedClock(now)
	return &sweepFixture{
		svc:            svc,
		contests:       contests,
		participations: participations,
		activities:     activities,
		notifier:       notifier,
		invalidator:    invalidator,
		now:            now,
	}
}

func TestSweepClosesOpenParticipations(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	activityCount := len(f.activities.rows)

	report, err := f.svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Contests)
	assert.Equal(t, 2, report.Closed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, int64(3), report.QuestionsRestored)
	assert.Equal(t, []uint{1}, f.invalidator.ids)
	assert.Len(t, f.activities.rows, activityCount, "the sweep never writes answers")

	for _, id := range []uint{1, 2} {
		p, err := f.participations.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, p.SubmittedAt)
		assert.True(t, p.SubmittedAt.Equal(f.now))
		assert.True(t, p.EndTime.Equal(f.now))
	}

	require.Len(t, f.notifier.results, 2)
	byParticipation := map[uint]*ContestResult{}
	for _, r := range f.notifier.results {
		byParticipation[r.ParticipationID] = r
		assert.True(t, r.AutoSubmitted)
		assert.Equal(t, util.AutoSubmittedTimeTaken, r.TimeTaken)
		assert.True(t, r.SubmittedAt.Equal(f.now))
	}
	assert.Equal(t, 1, byParticipation[1].Correct)
	assert.Equal(t, 2, byParticipation[1].Attempted)
	assert.Equal(t, 0, byParticipation[2].Correct)
	assert.Equal(t, 3, byParticipation[2].TotalQuestions)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	_, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	second, err := f.svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Closed)
	assert.Len(t, f.notifier.results, 2, "each participation is notified once")
	assert.Equal(t, []uint{1}, f.invalidator.ids)
}

func TestSweepIsolatesFailures(t *testing.T) {
	f := newSweepFixture(t)
	f.participations.claimErr[1] = errors.New("deadlock")

	report, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Closed)
	require.Len(t, f.notifier.results, 1)
	assert.Equal(t, uint(2), f.notifier.results[0].ParticipationID)

	p, err := f.participations.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, p.IsOpen())
}

func TestSweepCountsLostResultAsFailed(t *testing.T) {
	f := newSweepFixture(t)
	f.activities.userErr = errors.New("connection reset")

	report, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Closed)
	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, f.notifier.results)
	assert.Equal(t, []uint{1}, f.invalidator.ids, "closed participations still refresh the leaderboard")

	p, err := f.participations.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, p.IsOpen())
}

func TestSweepSkipsParticipationClosedConcurrently(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	// a manual submit lands between listing and claiming
	claimed, err := f.participations.ClaimForClose(ctx, 2, f.now.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	open, err := f.participations.ListOpenByTestSeries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)

	var report SweepReport
	ts, err := f.contests.FindByID(ctx, 1)
	require.NoError(t, err)
	stale := []model.Participation{open[0], {BaseModel: model.BaseModel{ID: 2}, UserID: 20, TestSeriesID: uintPtr(1)}}
	for i := range stale {
		ok, err := f.svc.autoSubmit(ctx, ts, &stale[i], f.now)
		require.NoError(t, err)
		if ok {
			report.Closed++
		} else {
			report.Skipped++
		}
	}
	assert.Equal(t, 1, report.Closed)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, f.notifier.results, 1)
}

func TestSweepSendsRemindersOnce(t *testing.T) {
	f := newSweepFixture(t)
	upcoming := model.TestSeries{BaseModel: model.BaseModel{ID: 2}, Title: "Next", StartTime: f.now.Add(10 * time.Minute), EndTime: f.now.Add(time.Hour)}
	f.contests.due = []model.TestSeries{upcoming}
	ctx := context.Background()

	first, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	second, err := f.svc.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Reminders)
	assert.Equal(t, 0, second.Reminders)
	assert.Equal(t, []uint{2}, f.notifier.reminders)
}

func TestSweepWithoutReminderLead(t *testing.T) {
	f := newSweepFixture(t)
	f.svc.ReminderLead = 0
	f.contests.due = []model.TestSeries{{BaseModel: model.BaseModel{ID: 2}}}

	report, err := f.svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Reminders)
	assert.Empty(t, f.notifier.reminders)
}
