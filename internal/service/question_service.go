package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/repository"
	"placeprep_backend/internal/util"

	"gorm.io/datatypes"
)

type QuestionRequest struct {
	Category    string            `json:"category" binding:"required" validate:"required"`
	Subcategory string            `json:"subcategory" binding:"required" validate:"required"`
	Level       string            `json:"level" binding:"required" validate:"required"`
	Question    string            `json:"question" binding:"required" validate:"required"`
	Options     map[string]string `json:"options" binding:"required,min=2" validate:"required,min=2,dive,required"`
	CorrectAns  string            `json:"correctAns" binding:"required" validate:"required"`
	Explanation string            `json:"explanation"`
	Visibility  *bool             `json:"visibility"`
}

// Check normalises the request and verifies the answer key names one of the options.
func (r *QuestionRequest) Check() error {
	r.Category = strings.TrimSpace(r.Category)
	r.Subcategory = strings.TrimSpace(r.Subcategory)
	r.Level = strings.TrimSpace(r.Level)
	r.Question = strings.TrimSpace(r.Question)
	r.CorrectAns = strings.TrimSpace(r.CorrectAns)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	if _, ok := r.Options[r.CorrectAns]; !ok {
		return fmt.Errorf("%w: correctAns %q is not an option key", util.ErrValidation, r.CorrectAns)
	}
	return nil
}

func (r *QuestionRequest) apply(q *model.Question) {
	q.Category = r.Category
	q.Subcategory = r.Subcategory
	q.Level = r.Level
	q.Question = r.Question
	q.CorrectAns = r.CorrectAns
	q.Explanation = r.Explanation
	q.Options = make(datatypes.JSONMap, len(r.Options))
	for k, v := range r.Options {
		q.Options[k] = v
	}
	if r.Visibility != nil {
		q.Visibility = *r.Visibility
	}
}

type QuestionService struct {
	Questions QuestionStore
	Bookmarks BookmarkStore
}

func NewQuestionService(questions QuestionStore, bookmarks BookmarkStore) *QuestionService {
	return &QuestionService{Questions: questions, Bookmarks: bookmarks}
}

func (s *QuestionService) Create(ctx context.Context, authorID uint, req QuestionRequest) (*model.Question, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	q := &model.Question{CreatedBy: authorID, Visibility: true}
	req.apply(q)
	if err := s.Questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// editable loads a question the caller may change. Questions attached to a contest are frozen,
// since every result of that contest is graded from them.
func (s *QuestionService) editable(ctx context.Context, claims *util.Claims, id uint) (*model.Question, error) {
	q, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if claims.Role != model.RoleAdmin && q.CreatedBy != claims.UserID {
		return nil, util.ErrPermissionDenied
	}
	used, err := s.Questions.InContest(ctx, id)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, util.ErrQuestionInUse
	}
	return q, nil
}

func (s *QuestionService) Update(ctx context.Context, claims *util.Claims, id uint, req QuestionRequest) (*model.Question, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	q, err := s.editable(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	req.apply(q)
	if err := s.Questions.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, claims *util.Claims, id uint) error {
	if _, err := s.editable(ctx, claims, id); err != nil {
		return err
	}
	return s.Questions.Delete(ctx, id)
}

// Get hides the answer key from callers who cannot moderate.
func (s *QuestionService) Get(ctx context.Context, claims *util.Claims, id uint) (*model.Question, error) {
	q, err := s.Questions.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if claims == nil || !claims.Role.CanModerate() {
		if !q.Visibility {
			return nil, util.ErrNotFound
		}
		redacted := q.Redacted()
		return &redacted, nil
	}
	return q, nil
}

func (s *QuestionService) List(ctx context.Context, filter repository.QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	return s.Questions.List(ctx, filter, page, limit)
}

type CategoryGroup struct {
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories"`
	Count         int64    `json:"count"`
}

// Categories groups visible questions by category, keeping the store's ordering.
func (s *QuestionService) Categories(ctx context.Context) ([]CategoryGroup, error) {
	rows, err := s.Questions.Categories(ctx)
	if err != nil {
		return nil, err
	}
	groups := []CategoryGroup{}
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.Category]
		if !ok {
			i = len(groups)
			index[r.Category] = i
			groups = append(groups, CategoryGroup{Category: r.Category, Subcategories: []string{}})
		}
		if r.Subcategory != "" {
			groups[i].Subcategories = append(groups[i].Subcategories, r.Subcategory)
		}
		groups[i].Count += r.Count
	}
	return groups, nil
}

// Practice returns a shuffled sample of visible questions with answers and explanations, for
// self-study outside a timed session.
func (s *QuestionService) Practice(ctx context.Context, filter repository.QuestionFilter, limit int) ([]model.Question, error) {
	if limit <= 0 || limit > util.MaxLimit {
		limit = util.DefaultLimit
	}
	return s.Questions.RandomVisible(ctx, filter, limit)
}

// Import parses an uploaded bank and stores it in one transaction. The first invalid row
// aborts the import.
func (s *QuestionService) Import(ctx context.Context, authorID uint, kind string, r io.Reader) (int, error) {
	var (
		rows []QuestionRequest
		err  error
	)
	switch kind {
	case util.ImportXLSX:
		rows, err = ParseXLSXQuestions(r)
	case util.ImportJSON:
		rows, err = ParseJSONQuestions(r)
	default:
		return 0, util.ErrUnsupportedFileType
	}
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: file contains no questions", util.ErrValidation)
	}

	questions := make([]model.Question, 0, len(rows))
	for i := range rows {
		if err := rows[i].Check(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		q := model.Question{CreatedBy: authorID, Visibility: true}
		rows[i].apply(&q)
		questions = append(questions, q)
	}
	if err := s.Questions.CreateBatch(ctx, questions); err != nil {
		return 0, err
	}
	return len(questions), nil
}

func (s *QuestionService) AddBookmark(ctx context.Context, userID, questionID uint) (*model.Bookmark, error) {
	if _, err := s.Questions.FindByID(ctx, questionID); err != nil {
		return nil, notFound(err)
	}
	exists, err := s.Bookmarks.Exists(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrBookmarkExists
	}
	b := &model.Bookmark{UserID: userID, QuestionID: questionID}
	if err := s.Bookmarks.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *QuestionService) RemoveBookmark(ctx context.Context, userID, questionID uint) error {
	removed, err := s.Bookmarks.Delete(ctx, userID, questionID)
	if err != nil {
		return err
	}
	if !removed {
		return util.ErrNotFound
	}
	return nil
}

// ListBookmarks redacts questions that are currently locked in a contest.
func (s *QuestionService) ListBookmarks(ctx context.Context, userID uint) ([]model.Bookmark, error) {
	items, err := s.Bookmarks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if !items[i].Question.Visibility {
			items[i].Question = items[i].Question.Redacted()
		}
	}
	return items, nil
}
