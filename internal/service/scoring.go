package service

import (
	"math"
	"strings"
	"time"

	"placeprep_backend/internal/model"

	"github.com/shopspring/decimal"
)

// AnswerInput is one answer in a submission payload. A nil, blank or "null" option is unattempted.
type AnswerInput struct {
	QuestionID     uint    `json:"questionId" binding:"required"`
	SelectedOption *string `json:"selectedOption"`
}

type QuestionOutcome struct {
	QuestionID    uint              `json:"questionId"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options,omitempty"`
	UserAnswer    *string           `json:"userAnswer"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation,omitempty"`
	IsAttempted   bool              `json:"isAttempted"`
	IsCorrect     bool              `json:"isCorrect"`
}

type ScoreResult struct {
	TotalQuestions int               `json:"totalQuestions"`
	Attempted      int               `json:"attempted"`
	Correct        int               `json:"correct"`
	Percentage     int               `json:"percentage"`
	Accuracy       float64           `json:"accuracy"`
	Questions      []QuestionOutcome `json:"questions"`
}

// IsAttempted reports whether a stored or submitted selection counts as an attempt. Surrounding
// whitespace is ignored, so "", "null" and padded variants such as " null " are unattempted.
func IsAttempted(selected *string) bool {
	if selected == nil {
		return false
	}
	s := strings.TrimSpace(*selected)
	return s != "" && s != "null"
}

// ScoreAnswers grades answers against questions, in question order. Answers for questions
// outside the set are ignored; a question without an answer is unattempted.
func ScoreAnswers(questions []model.Question, answers map[uint]*string) ScoreResult {
	res := ScoreResult{
		TotalQuestions: len(questions),
		Questions:      make([]QuestionOutcome, 0, len(questions)),
	}
	for _, q := range questions {
		selected := answers[q.ID]
		outcome := QuestionOutcome{
			QuestionID:    q.ID,
			Question:      q.Question,
			Options:       optionText(q.Options),
			CorrectAnswer: q.CorrectAns,
			Explanation:   q.Explanation,
		}
		if IsAttempted(selected) {
			value := *selected
			outcome.UserAnswer = &value
			outcome.IsAttempted = true
			outcome.IsCorrect = value == q.CorrectAns
			res.Attempted++
			if outcome.IsCorrect {
				res.Correct++
			}
		}
		res.Questions = append(res.Questions, outcome)
	}
	res.Percentage = Percentage(res.Correct, res.TotalQuestions)
	res.Accuracy = Accuracy(res.Correct, res.Attempted)
	return res
}

// Percentage is correct/total*100 rounded to the nearest integer, 0 for an empty paper.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// PercentageExact is correct/total*100 rounded to two decimals.
func PercentageExact(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

// Accuracy is correct/attempted*100 rounded to two decimals, 0 when nothing was attempted.
func Accuracy(correct, attempted int) float64 {
	if attempted <= 0 {
		return 0
	}
	return round2(float64(correct) / float64(attempted) * 100)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// LatestAnswers keeps the newest selection per question. Later timestamps win; equal
// timestamps fall back to the higher row id.
func LatestAnswers(activities []model.StudentActivity) map[uint]*string {
	type pick struct {
		at  time.Time
		id  uint
		ans *string
	}
	latest := make(map[uint]pick, len(activities))
	for _, a := range activities {
		cur, ok := latest[a.QuestionID]
		if ok && (a.Timestamp.Before(cur.at) || (a.Timestamp.Equal(cur.at) && a.ID < cur.id)) {
			continue
		}
		latest[a.QuestionID] = pick{at: a.Timestamp, id: a.ID, ans: a.SelectedAnswer}
	}
	answers := make(map[uint]*string, len(latest))
	for qid, p := range latest {
		answers[qid] = p.ans
	}
	return answers
}

// MergeAnswers overlays a submission payload on previously saved answers. The last
// payload entry for a question wins.
func MergeAnswers(saved map[uint]*string, payload []AnswerInput) map[uint]*string {
	merged := make(map[uint]*string, len(saved)+len(payload))
	for qid, ans := range saved {
		merged[qid] = ans
	}
	for _, a := range payload {
		merged[a.QuestionID] = a.SelectedOption
	}
	return merged
}

// ActivitiesFor turns payload answers for known questions into activity rows stamped at.
func ActivitiesFor(userID uint, questions []model.Question, payload []AnswerInput, at time.Time, testSeriesID, freePracticeID *uint) []model.StudentActivity {
	known := make(map[uint]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	rows := make([]model.StudentActivity, 0, len(payload))
	for _, a := range payload {
		if !known[a.QuestionID] {
			continue
		}
		rows = append(rows, model.StudentActivity{
			UserID:         userID,
			QuestionID:     a.QuestionID,
			TestSeriesID:   testSeriesID,
			FreePracticeID: freePracticeID,
			Timestamp:      at,
			SelectedAnswer: a.SelectedOption,
		})
	}
	return rows
}

func optionText(options map[string]interface{}) map[string]string {
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]string, len(options))
	for k, v := range options {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
