package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// submitGrace is how long after the end time a manual submission is still accepted.
const submitGrace = 2 * time.Minute

type TestSeriesRequest struct {
	Title        string    `json:"title" binding:"required,max=200"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"startTime" binding:"required"`
	EndTime      time.Time `json:"endTime" binding:"required"`
	RequiresCode bool      `json:"requiresCode"`
	ContestCode  string    `json:"contestCode"`
	QuestionIDs  []uint    `json:"questionIds" binding:"required,min=1"`
}

type TestSeriesSummary struct {
	ID            uint                `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	RequiresCode  bool                `json:"requiresCode"`
	Status        model.ContestStatus `json:"status"`
	CreatedBy     uint                `json:"createdBy"`
	QuestionCount int                 `json:"questionCount,omitempty"`
}

type TestSeriesDetail struct {
	TestSeriesSummary
	ContestCode *string          `json:"contestCode,omitempty"`
	Questions   []model.Question `json:"questions,omitempty"`
}

type JoinResult struct {
	ParticipationID uint             `json:"participationId"`
	TestSeriesID    uint             `json:"testSeriesId"`
	Title           string           `json:"title"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime"`
	JoinedAt        time.Time        `json:"joinedAt"`
	Violations      int              `json:"violations"`
	Resumed         bool             `json:"resumed"`
	Questions       []model.Question `json:"questions"`
	SavedAnswers    map[uint]*string `json:"savedAnswers"`
}

// ContestResult is the graded outcome of one contest participation. TimeTaken holds minutes,
// or a marker string for sweeper-closed attempts.
type ContestResult struct {
	ParticipationID uint   `json:"participationId"`
	TestSeriesID    uint   `json:"testSeriesId"`
	Title           string `json:"title"`
	ScoreResult
	TimeTaken     interface{} `json:"timeTaken"`
	Violations    int         `json:"violations"`
	SubmittedAt   time.Time   `json:"submittedAt"`
	AutoSubmitted bool        `json:"autoSubmitted"`
}

type ViolationResult struct {
	ParticipationID  uint `json:"participationId"`
	Violations       int  `json:"violations"`
	Threshold        int  `json:"threshold"`
	ShouldAutoSubmit bool `json:"shouldAutoSubmit"`
}

type QuestionStat struct {
	QuestionID  uint    `json:"questionId"`
	Attempted   int     `json:"attempted"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correctRate"`
}

type ContestStats struct {
	TestSeriesID      uint           `json:"testSeriesId"`
	Participants      int            `json:"participants"`
	Submitted         int            `json:"submitted"`
	AveragePercentage float64        `json:"averagePercentage"`
	HighestPercentage float64        `json:"highestPercentage"`
	LowestPercentage  float64        `json:"lowestPercentage"`
	AverageTimeTaken  float64        `json:"averageTimeTaken"`
	Questions         []QuestionStat `json:"questions"`
}

type ContestService struct {
	Contests       TestSeriesStore
	Questions      QuestionStore
	Participations ParticipationStore
	Activities     ActivityStore
	Users          UserStore
	Leaderboard    *LeaderboardService
	Notifier       ResultNotifier
	Now            func() time.Time

	violationThreshold atomic.Int64
}

func NewContestService(
	contests TestSeriesStore,
	questions QuestionStore,
	participations ParticipationStore,
	activities ActivityStore,
	users UserStore,
	leaderboard *LeaderboardService,
	notifier ResultNotifier,
	violationThreshold int,
) *ContestService {
	s := &ContestService{
		Contests:       contests,
		Questions:      questions,
		Participations: participations,
		Activities:     activities,
		Users:          users,
		Leaderboard:    leaderboard,
		Notifier:       notifier,
		Now:            time.Now,
	}
	s.SetViolationThreshold(violationThreshold)
	return s
}

// SetViolationThreshold changes the count at which clients are told to auto-submit.
func (s *ContestService) SetViolationThreshold(n int) {
	if n <= 0 {
		n = 2
	}
	s.violationThreshold.Store(int64(n))
}

func (s *ContestService) ViolationThreshold() int {
	return int(s.violationThreshold.Load())
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	}
	return err
}

func summarize(ts *model.TestSeries, now time.Time) TestSeriesSummary {
	return TestSeriesSummary{
		ID:            ts.ID,
		Title:         ts.Title,
		Description:   ts.Description,
		StartTime:     ts.StartTime,
		EndTime:       ts.EndTime,
		RequiresCode:  ts.RequiresCode,
		Status:        ts.Status(now),
		CreatedBy:     ts.CreatedBy,
		QuestionCount: len(ts.Questions),
	}
}

func canManage(claims *util.Claims, ts *model.TestSeries) bool {
	return claims.Role == model.RoleAdmin || ts.CreatedBy == claims.UserID
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// validate checks the request and loads its questions.
func (s *ContestService) validate(ctx context.Context, req *TestSeriesRequest, excludeID uint) ([]model.Question, *string, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, nil, fmt.Errorf("%w: end time must be after start time", util.ErrValidation)
	}
	if !req.StartTime.After(s.Now()) {
		return nil, nil, fmt.Errorf("%w: start time must be in the future", util.ErrValidation)
	}

	var code *string
	if req.RequiresCode {
		c := strings.TrimSpace(req.ContestCode)
		if c == "" {
			return nil, nil, fmt.Errorf("%w: contest code is required", util.ErrValidation)
		}
		inUse, err := s.Contests.CodeInUse(ctx, c, excludeID)
		if err != nil {
			return nil, nil, err
		}
		if inUse {
			return nil, nil, util.ErrContestCodeTaken
		}
		code = &c
	}

	ids := dedupeIDs(req.QuestionIDs)
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one question is required", util.ErrValidation)
	}
	questions, err := s.Questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(questions) != len(ids) {
		return nil, nil, fmt.Errorf("%w: unknown question ids", util.ErrValidation)
	}
	return questions, code, nil
}

// Create schedules a contest and hides its questions from practice until it ends.
func (s *ContestService) Create(ctx context.Context, creatorID uint, req TestSeriesRequest) (*TestSeriesDetail, error) {
	questions, code, err := s.validate(ctx, &req, 0)
	if err != nil {
		return nil, err
	}

	ts := &model.TestSeries{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		RequiresCode: req.RequiresCode,
		ContestCode:  code,
		CreatedBy:    creatorID,
		Questions:    questions,
	}
	if err := s.Contests.Create(ctx, ts); err != nil {
		return nil, err
	}
	if err := s.Questions.SetVisibility(ctx, ts.QuestionIDs(), false); err != nil {
		logger.Log.Error("Hiding contest questions failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
	}

	if s.Notifier != nil {
		if err := s.Notifier.ContestAnnounced(ctx, ts); err != nil {
			logger.Log.Warn("Contest announcement failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
		}
	}

	detail := &TestSeriesDetail{TestSeriesSummary: summarize(ts, s.Now()), ContestCode: ts.ContestCode, Questions: ts.Questions}
	return detail, nil
}

// Update edits a contest that has not started yet.
func (s *ContestService) Update(ctx context.Context, claims *util.Claims, id uint, req TestSeriesRequest) (*TestSeriesDetail, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canManage(claims, ts) {
		return nil, util.ErrPermissionDenied
	}
	if ts.HasStarted(s.Now()) {
		return nil, util.ErrContestStarted
	}

	questions, code, err := s.validate(ctx, &req, ts.ID)
	if err != nil {
		return nil, err
	}

	next := make(map[uint]bool, len(questions))
	for _, q := range questions {
		next[q.ID] = true
	}
	var released []uint
	for _, q := range ts.Questions {
		if !next[q.ID] {
			released = append(released, q.ID)
		}
	}

	ts.Title = req.Title
	ts.Description = req.Description
	ts.StartTime = req.StartTime
	ts.EndTime = req.EndTime
	ts.RequiresCode = req.RequiresCode
	ts.ContestCode = code
	ts.ReminderSent = false
	ts.Questions = questions
	if err := s.Contests.Update(ctx, ts); err != nil {
		return nil, err
	}

	if _, err := s.Questions.ReleaseQuestions(ctx, released, s.Now()); err != nil {
		logger.Log.Error("Releasing contest questions failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
	}
	if err := s.Questions.SetVisibility(ctx, ts.QuestionIDs(), false); err != nil {
		logger.Log.Error("Hiding contest questions failed", zap.Error(err), zap.Uint("testSeriesId", ts.ID))
	}

	return &TestSeriesDetail{TestSeriesSummary: summarize(ts, s.Now()), ContestCode: ts.ContestCode, Questions: ts.Questions}, nil
}

// Delete removes a contest that has not started and gives its questions back to practice,
// except those another unfinished contest still holds.
func (s *ContestService) Delete(ctx context.Context, claims *util.Claims, id uint) error {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if !canManage(claims, ts) {
		return util.ErrPermissionDenied
	}
	if ts.HasStarted(s.Now()) {
		return util.ErrContestStarted
	}
	ids := ts.QuestionIDs()
	if err := s.Contests.Delete(ctx, ts); err != nil {
		return err
	}
	_, err = s.Questions.ReleaseQuestions(ctx, ids, s.Now())
	return err
}

func (s *ContestService) List(ctx context.Context, status model.ContestStatus, page, limit int) ([]TestSeriesSummary, int64, error) {
	now := s.Now()
	items, total, err := s.Contests.List(ctx, status, now, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]TestSeriesSummary, 0, len(items))
	for i := range items {
		out = append(out, summarize(&items[i], now))
	}
	return out, total, nil
}

// Get returns a contest. Moderators see the paper at any time, everyone else only after it ends.
func (s *ContestService) Get(ctx context.Context, claims *util.Claims, id uint) (*TestSeriesDetail, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	detail := &TestSeriesDetail{TestSeriesSummary: summarize(ts, s.Now())}
	switch {
	case claims != nil && claims.Role.CanModerate():
		detail.ContestCode = ts.ContestCode
		detail.Questions = ts.Questions
	case ts.HasEnded(s.Now()):
		detail.Questions = ts.Questions
	}
	return detail, nil
}

// Join opens, or resumes, the caller's participation in a running contest.
func (s *ContestService) Join(ctx context.Context, userID, id uint, code string) (*JoinResult, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	now := s.Now()
	if !ts.HasStarted(now) {
		return nil, util.ErrContestNotStarted
	}
	if ts.HasEnded(now) {
		return nil, util.ErrContestEnded
	}
	if ts.RequiresCode && (ts.ContestCode == nil || strings.TrimSpace(code) != *ts.ContestCode) {
		return nil, util.ErrInvalidContestCode
	}

	resumed := false
	p, err := s.Participations.FindLatestForContest(ctx, userID, ts.ID)
	switch {
	case err == nil && !p.IsOpen():
		return nil, util.ErrAlreadySubmitted
	case err == nil:
		resumed = true
	case errors.Is(err, gorm.ErrRecordNotFound):
		tsID := ts.ID
		p = &model.Participation{
			UserID:       userID,
			TestSeriesID: &tsID,
			StartTime:    now,
			Contest:      true,
		}
		if err := s.Participations.Create(ctx, p); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	saved := map[uint]*string{}
	if resumed {
		activities, err := s.Activities.ListByUserAndTestSeries(ctx, userID, ts.ID)
		if err != nil {
			return nil, err
		}
		saved = LatestAnswers(activities)
	}

	questions := make([]model.Question, 0, len(ts.Questions))
	for _, q := range ts.Questions {
		questions = append(questions, q.Redacted())
	}
	return &JoinResult{
		ParticipationID: p.ID,
		TestSeriesID:    ts.ID,
		Title:           ts.Title,
		StartTime:       ts.StartTime,
		EndTime:         ts.EndTime,
		JoinedAt:        p.StartTime,
		Violations:      p.Violations,
		Resumed:         resumed,
		Questions:       questions,
		SavedAnswers:    saved,
	}, nil
}

// openParticipation loads the caller's live participation in a contest.
func (s *ContestService) openParticipation(ctx context.Context, userID uint, ts *model.TestSeries) (*model.Participation, error) {
	p, err := s.Participations.FindLatestForContest(ctx, userID, ts.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: not joined", util.ErrNotFound)
		}
		return nil, err
	}
	if !p.IsOpen() {
		return nil, util.ErrAlreadySubmitted
	}
	return p, nil
}

// SaveAnswer records an in-progress selection so it survives reconnects and auto-submission.
func (s *ContestService) SaveAnswer(ctx context.Context, userID, id uint, answer AnswerInput) error {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	now := s.Now()
	if ts.HasEnded(now) {
		return util.ErrContestEnded
	}
	if _, err := s.openParticipation(ctx, userID, ts); err != nil {
		return err
	}
	rows := ActivitiesFor(userID, ts.Questions, []AnswerInput{answer}, now, &ts.ID, nil)
	if len(rows) == 0 {
		return fmt.Errorf("%w: question is not part of this contest", util.ErrValidation)
	}
	return s.Activities.CreateBatch(ctx, rows)
}

// Submit closes the caller's participation and grades it. Answers missing from the payload
// fall back to the latest saved selection.
func (s *ContestService) Submit(ctx context.Context, userID, id uint, answers []AnswerInput) (*ContestResult, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	now := s.Now()
	if now.After(ts.EndTime.Add(submitGrace)) {
		return nil, util.ErrContestEnded
	}
	p, err := s.openParticipation(ctx, userID, ts)
	if err != nil {
		return nil, err
	}

	saved, err := s.Activities.ListByUserAndTestSeries(ctx, userID, ts.ID)
	if err != nil {
		return nil, err
	}
	merged := MergeAnswers(LatestAnswers(saved), answers)

	rows := ActivitiesFor(userID, ts.Questions, answers, now, &ts.ID, nil)
	claimed, err := s.Participations.CloseWithActivities(ctx, p.ID, now, rows)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, util.ErrAlreadySubmitted
	}
	if s.Leaderboard != nil {
		s.Leaderboard.Invalidate(ctx, ts.ID)
	}

	p.EndTime = &now
	p.SubmittedAt = &now
	result := &ContestResult{
		ParticipationID: p.ID,
		TestSeriesID:    ts.ID,
		Title:           ts.Title,
		ScoreResult:     ScoreAnswers(ts.Questions, merged),
		TimeTaken:       TimeTaken(p, ts.StartTime),
		Violations:      p.Violations,
		SubmittedAt:     now,
	}

	if s.Notifier != nil {
		if user, err := s.Users.FindByID(ctx, userID); err == nil {
			if err := s.Notifier.ContestResult(ctx, user, ts, result); err != nil {
				logger.Log.Warn("Contest result notification failed", zap.Error(err), zap.Uint("participationId", p.ID))
			}
		}
	}
	return result, nil
}

// RecordViolation counts a proctoring violation and tells the client when to auto-submit.
func (s *ContestService) RecordViolation(ctx context.Context, userID, participationID uint, kind string) (*ViolationResult, error) {
	p, err := s.Participations.FindByID(ctx, participationID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != userID || p.TestSeriesID == nil {
		return nil, util.ErrNotFound
	}
	if !p.IsOpen() {
		return nil, util.ErrAlreadySubmitted
	}
	count, err := s.Participations.IncrementViolations(ctx, p.ID)
	if err != nil {
		return nil, notFound(err)
	}
	threshold := s.ViolationThreshold()
	logger.Log.Info("Proctoring violation recorded",
		zap.Uint("participationId", p.ID),
		zap.Uint("userId", userID),
		zap.String("type", kind),
		zap.Int("violations", count),
	)
	return &ViolationResult{
		ParticipationID:  p.ID,
		Violations:       count,
		Threshold:        threshold,
		ShouldAutoSubmit: count >= threshold,
	}, nil
}

// MyResult grades the caller's closed participation from their saved answers.
func (s *ContestService) MyResult(ctx context.Context, userID, id uint) (*ContestResult, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	p, err := s.Participations.FindLatestForContest(ctx, userID, ts.ID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.IsOpen() {
		return nil, fmt.Errorf("%w: participation is still open", util.ErrValidation)
	}
	activities, err := s.Activities.ListByUserAndTestSeries(ctx, userID, ts.ID)
	if err != nil {
		return nil, err
	}
	return contestResultFor(ts, p, activities), nil
}

func contestResultFor(ts *model.TestSeries, p *model.Participation, activities []model.StudentActivity) *ContestResult {
	res := &ContestResult{
		ParticipationID: p.ID,
		TestSeriesID:    ts.ID,
		Title:           ts.Title,
		ScoreResult:     ScoreAnswers(ts.Questions, LatestAnswers(activities)),
		TimeTaken:       TimeTaken(p, ts.StartTime),
		Violations:      p.Violations,
	}
	if p.SubmittedAt != nil {
		res.SubmittedAt = *p.SubmittedAt
	}
	return res
}

// Stats summarizes a contest from its leaderboard and per-question answer rates.
func (s *ContestService) Stats(ctx context.Context, id uint) (*ContestStats, error) {
	ts, err := s.Contests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	entries, err := s.Leaderboard.ForContest(ctx, ts)
	if err != nil {
		return nil, err
	}
	activities, err := s.Activities.ListByTestSeries(ctx, ts.ID)
	if err != nil {
		return nil, err
	}
	return buildContestStats(ts, entries, activities), nil
}

func buildContestStats(ts *model.TestSeries, entries []LeaderboardEntry, activities []model.StudentActivity) *ContestStats {
	stats := &ContestStats{TestSeriesID: ts.ID, Participants: len(entries)}
	var pctSum, timeSum float64
	timed := 0
	for i, e := range entries {
		if e.SubmittedAt != nil {
			stats.Submitted++
		}
		pctSum += e.Percentage
		if e.TimeTaken > 0 {
			timeSum += e.TimeTaken
			timed++
		}
		if i == 0 || e.Percentage > stats.HighestPercentage {
			stats.HighestPercentage = e.Percentage
		}
		if i == 0 || e.Percentage < stats.LowestPercentage {
			stats.LowestPercentage = e.Percentage
		}
	}
	if len(entries) > 0 {
		stats.AveragePercentage = round2(pctSum / float64(len(entries)))
	}
	if timed > 0 {
		stats.AverageTimeTaken = round2(timeSum / float64(timed))
	}

	byUser := make(map[uint][]model.StudentActivity)
	for _, a := range activities {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	perQ := make(map[uint]*QuestionStat, len(ts.Questions))
	stats.Questions = make([]QuestionStat, len(ts.Questions))
	for i, q := range ts.Questions {
		stats.Questions[i].QuestionID = q.ID
		perQ[q.ID] = &stats.Questions[i]
	}
	correctByQ := make(map[uint]string, len(ts.Questions))
	for _, q := range ts.Questions {
		correctByQ[q.ID] = q.CorrectAns
	}
	for _, acts := range byUser {
		for qid, ans := range LatestAnswers(acts) {
			qs, ok := perQ[qid]
			if !ok || !IsAttempted(ans) {
				continue
			}
			qs.Attempted++
			if *ans == correctByQ[qid] {
				qs.Correct++
			}
		}
	}
	for i := range stats.Questions {
		stats.Questions[i].CorrectRate = Accuracy(stats.Questions[i].Correct, stats.Questions[i].Attempted)
	}
	return stats
}
