package service

import (
	"context"
	"errors"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
)

type ResultSummary struct {
	ParticipationID uint       `json:"participationId"`
	Kind            string     `json:"kind"`
	TestSeriesID    *uint      `json:"testSeriesId,omitempty"`
	FreePracticeID  *uint      `json:"freePracticeId,omitempty"`
	Title           string     `json:"title"`
	TotalQuestions  int        `json:"totalQuestions"`
	Attempted       int        `json:"attempted"`
	Correct         int        `json:"correct"`
	Percentage      int        `json:"percentage"`
	Accuracy        float64    `json:"accuracy"`
	TimeTaken       float64    `json:"timeTaken"`
	Violations      int        `json:"violations"`
	SubmittedAt     *time.Time `json:"submittedAt"`
}

type ResultDetail struct {
	ResultSummary
	Questions []QuestionOutcome `json:"questions"`
}

const (
	ResultContest  = "contest"
	ResultPractice = "practice"
)

// ResultService grades closed participations from their stored answers.
type ResultService struct {
	Participations ParticipationStore
	Contests       TestSeriesStore
	Practices      FreePracticeStore
	Activities     ActivityStore
}

func NewResultService(participations ParticipationStore, contests TestSeriesStore, practices FreePracticeStore, activities ActivityStore) *ResultService {
	return &ResultService{
		Participations: participations,
		Contests:       contests,
		Practices:      practices,
		Activities:     activities,
	}
}

func (s *ResultService) ListMine(ctx context.Context, userID uint, page, limit int) ([]ResultSummary, int64, error) {
	items, total, err := s.Participations.ListClosedByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ResultSummary, 0, len(items))
	for i := range items {
		detail, err := s.grade(ctx, &items[i])
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				continue
			}
			return nil, 0, err
		}
		out = append(out, detail.ResultSummary)
	}
	return out, total, nil
}

func (s *ResultService) Detail(ctx context.Context, userID, participationID uint) (*ResultDetail, error) {
	p, err := s.Participations.FindByID(ctx, participationID)
	if err != nil {
		return nil, notFound(err)
	}
	if p.UserID != userID || p.IsOpen() {
		return nil, util.ErrNotFound
	}
	return s.grade(ctx, p)
}

func (s *ResultService) grade(ctx context.Context, p *model.Participation) (*ResultDetail, error) {
	var (
		questions  []model.Question
		activities []model.StudentActivity
		title      string
		start      time.Time
		kind       string
		err        error
	)
	switch {
	case p.TestSeriesID != nil:
		ts, ferr := s.Contests.FindByID(ctx, *p.TestSeriesID)
		if ferr != nil {
			return nil, notFound(ferr)
		}
		questions, title, start, kind = ts.Questions, ts.Title, ts.StartTime, ResultContest
		activities, err = s.Activities.ListByUserAndTestSeries(ctx, p.UserID, ts.ID)
	case p.FreePracticeID != nil:
		fp, ferr := s.Practices.FindByID(ctx, *p.FreePracticeID)
		if ferr != nil {
			return nil, notFound(ferr)
		}
		questions, title, start, kind = fp.Questions, fp.Title, fp.StartTime, ResultPractice
		activities, err = s.Activities.ListByUserAndPractice(ctx, p.UserID, fp.ID)
	default:
		return nil, util.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	score := ScoreAnswers(questions, LatestAnswers(activities))
	return &ResultDetail{
		ResultSummary: ResultSummary{
			ParticipationID: p.ID,
			Kind:            kind,
			TestSeriesID:    p.TestSeriesID,
			FreePracticeID:  p.FreePracticeID,
			Title:           title,
			TotalQuestions:  score.TotalQuestions,
			Attempted:       score.Attempted,
			Correct:         score.Correct,
			Percentage:      score.Percentage,
			Accuracy:        score.Accuracy,
			TimeTaken:       TimeTaken(p, start),
			Violations:      p.Violations,
			SubmittedAt:     p.SubmittedAt,
		},
		Questions: score.Questions,
	}, nil
}
