package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"placeprep_backend/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

var validate = validator.New()

// ParseJSONQuestions reads a JSON array of question objects.
func ParseJSONQuestions(r io.Reader) ([]QuestionRequest, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of questions: %v", util.ErrValidation, err)
	}
	rows := make([]QuestionRequest, 0, len(raw))
	for i, item := range raw {
		var q QuestionRequest
		if err := json.Unmarshal(item, &q); err != nil {
			return nil, fmt.Errorf("row %d: %w: %v", i+1, util.ErrValidation, err)
		}
		rows = append(rows, q)
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// optionKey maps headers such as "Option A", "option_b" or "C" onto an option key.
func optionKey(header string) (string, bool) {
	h := strings.TrimPrefix(header, "option")
	if len(h) == 1 && h[0] >= 'a' && h[0] <= 'z' {
		return strings.ToUpper(h), true
	}
	return "", false
}

// ParseXLSXQuestions reads the first sheet of a workbook. The first row is a header naming
// category, subcategory, level, question, one column per option, correctAns and explanation.
// A single "options" column holding a JSON object is accepted instead of option columns.
func ParseXLSXQuestions(r io.Reader) ([]QuestionRequest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable workbook: %v", util.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", util.ErrValidation)
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(grid) < 2 {
		return nil, nil
	}

	header := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = normalizeHeader(h)
	}

	rows := make([]QuestionRequest, 0, len(grid)-1)
	for n, cells := range grid[1:] {
		if blankRow(cells) {
			continue
		}
		q := QuestionRequest{Options: map[string]string{}}
		for i, cell := range cells {
			if i >= len(header) {
				break
			}
			value := strings.TrimSpace(cell)
			switch col := header[i]; col {
			case "category":
				q.Category = value
			case "subcategory":
				q.Subcategory = value
			case "level", "difficulty":
				q.Level = value
			case "question":
				q.Question = value
			case "correctans", "correctanswer", "answer":
				q.CorrectAns = value
			case "explanation":
				q.Explanation = value
			case "options":
				if value == "" {
					continue
				}
				if err := json.Unmarshal([]byte(value), &q.Options); err != nil {
					return nil, fmt.Errorf("row %d: %w: options must be a JSON object", n+2, util.ErrValidation)
				}
			default:
				if key, ok := optionKey(col); ok && value != "" {
					q.Options[key] = value
				}
			}
		}
		rows = append(rows, q)
	}
	return rows, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
