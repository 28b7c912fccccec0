package service

import (
	"testing"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailServiceTemplates(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailServiceWithSender(sender, "https://app.test/")
	user := &model.User{FullName: "Asha", Email: "asha@example.com", VerificationToken: "tok-1", ResetToken: "tok-2"}
	ts := &model.TestSeries{
		BaseModel:   model.BaseModel{ID: 7},
		Title:       "Weekly",
		Description: "Forty minutes",
		StartTime:   contestStart,
		EndTime:     contestStart.Add(time.Hour),
	}

	require.NoError(t, mailer.SendVerification(user))
	require.NoError(t, mailer.SendPasswordReset(user))
	require.NoError(t, mailer.SendContestResult(user, ts, &ContestResult{
		ScoreResult: ScoreResult{TotalQuestions: 3, Attempted: 3, Correct: 2, Percentage: 67},
		TimeTaken:   12.5,
	}))
	require.NoError(t, mailer.SendContestResult(user, ts, &ContestResult{
		ScoreResult:   ScoreResult{TotalQuestions: 3},
		TimeTaken:     util.AutoSubmittedTimeTaken,
		AutoSubmitted: true,
	}))
	require.NoError(t, mailer.SendContestAnnouncement(user, ts, false))
	require.NoError(t, mailer.SendContestAnnouncement(user, ts, true))

	require.Len(t, sender.sent, 6)
	for _, m := range sender.sent {
		assert.Equal(t, "asha@example.com", m.To)
		assert.Contains(t, m.Body, "Hi Asha")
		assert.Contains(t, m.Body, "PlacePrep")
	}

	verify := sender.sent[0]
	assert.Equal(t, "Verify your PlacePrep account", verify.Subject)
	assert.Contains(t, verify.Body, "https://app.test/verify-email?token=tok-1")

	assert.Contains(t, sender.sent[1].Body, "https://app.test/reset-password?token=tok-2")

	result := sender.sent[2]
	assert.Equal(t, "Your result: Weekly", result.Subject)
	assert.Contains(t, result.Body, "2 / 3")
	assert.Contains(t, result.Body, "12.50 min")
	assert.Contains(t, result.Body, "https://app.test/testseries/7/leaderboard")
	assert.NotContains(t, result.Body, "submitted automatically")

	auto := sender.sent[3]
	assert.Contains(t, auto.Body, util.AutoSubmittedTimeTaken)
	assert.Contains(t, auto.Body, "submitted automatically")

	assert.Equal(t, "New contest: Weekly", sender.sent[4].Subject)
	assert.Contains(t, sender.sent[4].Body, "has been scheduled")
	assert.Contains(t, sender.sent[4].Body, "2026-03-01 10:00:00")
	assert.Equal(t, "Starting soon: Weekly", sender.sent[5].Subject)
	assert.Contains(t, sender.sent[5].Body, "starts soon")
}

func TestMailServiceEscapesUserInput(t *testing.T) {
	sender := &captureSender{}
	mailer := NewMailServiceWithSender(sender, "https://app.test")
	user := &model.User{FullName: "<script>x</script>", Email: "x@example.com", VerificationToken: "t"}

	require.NoError(t, mailer.SendVerification(user))
	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].Body, "<script>")
	assert.Contains(t, sender.sent[0].Body, "&lt;script&gt;")
}
