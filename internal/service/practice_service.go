package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/repository"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPracticeQuestions = 100

type PracticeRequest struct {
	Title        string `json:"title"`
	Category     string `json:"category" binding:"required"`
	Subcategory  string `json:"subcategory"`
	Level        string `json:"level"`
	NumQuestions int    `json:"numQuestions" binding:"required,min=1,max=100"`
}

type PracticeSession struct {
	ID              uint             `json:"id"`
	ParticipationID uint             `json:"participationId"`
	Title           string           `json:"title"`
	Category        string           `json:"category"`
	Subcategory     string           `json:"subcategory"`
	Level           string           `json:"level"`
	StartTime       time.Time        `json:"startTime"`
	Questions       []model.Question `json:"questions"`
}

type PracticeResult struct {
	FreePracticeID uint   `json:"freePracticeId"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	ScoreResult
	TimeTaken   float64    `json:"timeTaken"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type PracticeSummary struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Level       string     `json:"level"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Submitted   bool       `json:"submitted"`
}

type CategoryStat struct {
	Category          string  `json:"category"`
	Tests             int     `json:"tests"`
	AveragePercentage float64 `json:"averagePercentage"`
	BestPercentage    int     `json:"bestPercentage"`
}

// PracticeStats aggregates finished sessions. Percentages are null until one exists.
type PracticeStats struct {
	TestsTaken         int            `json:"testsTaken"`
	QuestionsAttempted int            `json:"questionsAttempted"`
	QuestionsCorrect   int            `json:"questionsCorrect"`
	AveragePercentage  *float64       `json:"averagePercentage"`
	BestPercentage     *int           `json:"bestPercentage"`
	Accuracy           *float64       `json:"accuracy"`
	ByCategory         []CategoryStat `json:"byCategory"`
}

type PracticeService struct {
	Practices      FreePracticeStore
	Questions      QuestionStore
	Participations ParticipationStore
	Activities     ActivityStore
	Notifier       ResultNotifier
	Now            func() time.Time
}

func NewPracticeService(practices FreePracticeStore, questions QuestionStore, participations ParticipationStore, activities ActivityStore, notifier ResultNotifier) *PracticeService {
	return &PracticeService{
		Practices:      practices,
		Questions:      questions,
		Participations: participations,
		Activities:     activities,
		Notifier:       notifier,
		Now:            time.Now,
	}
}

// Create draws a random paper from the visible bank and opens the caller's session on it.
func (s *PracticeService) Create(ctx context.Context, userID uint, req PracticeRequest) (*PracticeSession, error) {
	if req.NumQuestions < 1 || req.NumQuestions > maxPracticeQuestions {
		return nil, fmt.Errorf("%w: numQuestions must be between 1 and %d", util.ErrValidation, maxPracticeQuestions)
	}
	filter := repository.QuestionFilter{
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Level:       req.Level,
	}
	questions, err := s.Questions.RandomVisible(ctx, filter, req.NumQuestions)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrNotEnoughQuestions
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = practiceTitle(req)
	}
	now := s.Now()
	fp := &model.FreePractice{
		Title:       title,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Level:       req.Level,
		CreatedBy:   userID,
		StartTime:   now,
		Questions:   questions,
	}
	p := &model.Participation{UserID: userID, StartTime: now, PracticeTest: true}
	if err := s.Practices.Create(ctx, fp, p); err != nil {
		return nil, err
	}

	paper := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		paper = append(paper, q.Redacted())
	}
	return &PracticeSession{
		ID:              fp.ID,
		ParticipationID: p.ID,
		Title:           fp.Title,
		Category:        fp.Category,
		Subcategory:     fp.Subcategory,
		Level:           fp.Level,
		StartTime:       fp.StartTime,
		Questions:       paper,
	}, nil
}

func practiceTitle(req PracticeRequest) string {
	parts := []string{req.Category}
	if req.Subcategory != "" {
		parts = append(parts, req.Subcategory)
	}
	if req.Level != "" {
		parts = append(parts, req.Level)
	}
	return strings.Join(parts, " / ") + " practice"
}

func (s *PracticeService) owned(ctx context.Context, userID, id uint) (*model.FreePractice, error) {
	fp, err := s.Practices.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if fp.CreatedBy != userID {
		return nil, util.ErrNotFound
	}
	return fp, nil
}

// Submit grades a session once. Later submissions of the same session are rejected.
func (s *PracticeService) Submit(ctx context.Context, userID, id uint, answers []AnswerInput) (*PracticeResult, error) {
	fp, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.Participations.FindForPractice(ctx, userID, fp.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	if !p.IsOpen() {
		return nil, util.ErrAlreadySubmitted
	}

	now := s.Now()
	rows := ActivitiesFor(userID, fp.Questions, answers, now, nil, &fp.ID)
	claimed, err := s.Participations.CloseWithActivities(ctx, p.ID, now, rows)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, util.ErrAlreadySubmitted
	}
	if err := s.Practices.SetEndTime(ctx, fp.ID, now); err != nil {
		logger.Log.Error("Setting practice end time failed", zap.Error(err), zap.Uint("freePracticeId", fp.ID))
	}

	p.EndTime = &now
	p.SubmittedAt = &now
	result := &PracticeResult{
		FreePracticeID: fp.ID,
		Title:          fp.Title,
		Category:       fp.Category,
		ScoreResult:    ScoreAnswers(fp.Questions, MergeAnswers(nil, answers)),
		TimeTaken:      TimeTaken(p, fp.StartTime),
		SubmittedAt:    &now,
	}
	if s.Notifier != nil {
		if err := s.Notifier.PracticeResult(ctx, userID, fp, result); err != nil {
			logger.Log.Warn("Practice result notification failed", zap.Error(err), zap.Uint("freePracticeId", fp.ID))
		}
	}
	return result, nil
}

func (s *PracticeService) List(ctx context.Context, userID uint, page, limit int) ([]PracticeSummary, int64, error) {
	items, total, err := s.Practices.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PracticeSummary, 0, len(items))
	for _, fp := range items {
		out = append(out, PracticeSummary{
			ID:          fp.ID,
			Title:       fp.Title,
			Category:    fp.Category,
			Subcategory: fp.Subcategory,
			Level:       fp.Level,
			StartTime:   fp.StartTime,
			EndTime:     fp.EndTime,
			Submitted:   fp.EndTime != nil,
		})
	}
	return out, total, nil
}

// Result regrades a submitted session from its stored answers.
func (s *PracticeService) Result(ctx context.Context, userID, id uint) (*PracticeResult, error) {
	fp, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if fp.EndTime == nil {
		return nil, fmt.Errorf("%w: practice has not been submitted", util.ErrValidation)
	}
	activities, err := s.Activities.ListByUserAndPractice(ctx, userID, fp.ID)
	if err != nil {
		return nil, err
	}
	res := &PracticeResult{
		FreePracticeID: fp.ID,
		Title:          fp.Title,
		Category:       fp.Category,
		ScoreResult:    ScoreAnswers(fp.Questions, LatestAnswers(activities)),
		SubmittedAt:    fp.EndTime,
	}
	if p, err := s.Participations.FindForPractice(ctx, userID, fp.ID); err == nil {
		res.TimeTaken = TimeTaken(p, fp.StartTime)
	}
	return res, nil
}

// Stats aggregates every submitted session of the caller.
func (s *PracticeService) Stats(ctx context.Context, userID uint) (*PracticeStats, error) {
	practices, err := s.Practices.ListSubmittedWithQuestions(ctx, userID)
	if err != nil {
		return nil, err
	}
	activities, err := s.Activities.ListPracticeByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildPracticeStats(practices, activities), nil
}

func buildPracticeStats(practices []model.FreePractice, activities []model.StudentActivity) *PracticeStats {
	stats := &PracticeStats{ByCategory: []CategoryStat{}}
	if len(practices) == 0 {
		return stats
	}

	bySession := make(map[uint][]model.StudentActivity)
	for _, a := range activities {
		if a.FreePracticeID != nil {
			bySession[*a.FreePracticeID] = append(bySession[*a.FreePracticeID], a)
		}
	}

	type agg struct {
		tests int
		sum   int
		best  int
	}
	categories := make(map[string]*agg)
	pctSum, best := 0, 0
	for i, fp := range practices {
		score := ScoreAnswers(fp.Questions, LatestAnswers(bySession[fp.ID]))
		stats.TestsTaken++
		stats.QuestionsAttempted += score.Attempted
		stats.QuestionsCorrect += score.Correct
		pctSum += score.Percentage
		if i == 0 || score.Percentage > best {
			best = score.Percentage
		}

		c, ok := categories[fp.Category]
		if !ok {
			c = &agg{}
			categories[fp.Category] = c
		}
		if c.tests == 0 || score.Percentage > c.best {
			c.best = score.Percentage
		}
		c.tests++
		c.sum += score.Percentage
	}

	avg := round2(float64(pctSum) / float64(stats.TestsTaken))
	acc := Accuracy(stats.QuestionsCorrect, stats.QuestionsAttempted)
	stats.AveragePercentage = &avg
	stats.BestPercentage = &best
	stats.Accuracy = &acc

	for name, c := range categories {
		stats.ByCategory = append(stats.ByCategory, CategoryStat{
			Category:          name,
			Tests:             c.tests,
			AveragePercentage: round2(float64(c.sum) / float64(c.tests)),
			BestPercentage:    c.best,
		})
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool { return stats.ByCategory[i].Category < stats.ByCategory[j].Category })
	return stats
}
