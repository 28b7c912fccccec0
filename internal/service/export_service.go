package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSheetName = 31

var leaderboardHeader = []string{
	"Rank", "Full Name", "Email", "Correct", "Attempted", "Total Questions",
	"Percentage", "Accuracy", "Time Taken (min)", "Submitted At",
}

// Export is a generated report ready to be streamed or stored.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	Contests    TestSeriesStore
	Activities  ActivityStore
	Leaderboard *LeaderboardService
	Storage     StorageProvider
	Now         func() time.Time
}

func NewExportService(contests TestSeriesStore, activities ActivityStore, leaderboard *LeaderboardService, storage StorageProvider) *ExportService {
	return &ExportService{
		Contests:    contests,
		Activities:  activities,
		Leaderboard: leaderboard,
		Storage:     storage,
		Now:         time.Now,
	}
}

func leaderboardRow(e LeaderboardEntry) []string {
	submitted := ""
	if e.SubmittedAt != nil {
		submitted = e.SubmittedAt.Format(util.TimeFormat)
	}
	return []string{
		strconv.Itoa(e.Rank),
		e.FullName,
		e.Email,
		strconv.Itoa(e.Correct),
		strconv.Itoa(e.Attempted),
		strconv.Itoa(e.TotalQuestions),
		strconv.FormatFloat(e.Percentage, 'f', 2, 64),
		strconv.FormatFloat(e.Accuracy, 'f', 2, 64),
		strconv.FormatFloat(e.TimeTaken, 'f', 2, 64),
		submitted,
	}
}

// WriteLeaderboardCSV renders ranked entries with a header row.
func WriteLeaderboardCSV(entries []LeaderboardEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(leaderboardHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write(leaderboardRow(e)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *ExportService) LeaderboardCSV(ctx context.Context, testSeriesID uint) (*Export, error) {
	ts, err := s.Contests.FindByID(ctx, testSeriesID)
	if err != nil {
		return nil, notFound(err)
	}
	entries, err := s.Leaderboard.ForContest(ctx, ts)
	if err != nil {
		return nil, err
	}
	data, err := WriteLeaderboardCSV(entries)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("testseries-%d-leaderboard.csv", ts.ID),
		ContentType: util.MimeCSV,
		Data:        data,
	}, nil
}

// sheetName builds a unique, Excel-safe participant sheet name.
func sheetName(rank int, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Participant"
	}
	full := fmt.Sprintf("%d. %s", rank, clean)
	if r := []rune(full); len(r) > maxSheetName {
		full = string(r[:maxSheetName])
	}
	return full
}

// BuildReportWorkbook lays out a Summary sheet, a Questions sheet and one sheet per participant.
func BuildReportWorkbook(ts *model.TestSeries, entries []LeaderboardEntry, activities []model.StudentActivity) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Contest", ts.Title},
		{"Start", ts.StartTime.Format(util.TimeFormat)},
		{"End", ts.EndTime.Format(util.TimeFormat)},
		{"Questions", len(ts.Questions)},
		{"Participants", len(entries)},
		{},
	}
	header := make([]interface{}, len(leaderboardHeader))
	for i, h := range leaderboardHeader {
		header[i] = h
	}
	summary = append(summary, header)
	for _, e := range entries {
		row := leaderboardRow(e)
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		summary = append(summary, cells)
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("Questions"); err != nil {
		return nil, err
	}
	questionRows := [][]interface{}{{"#", "Question ID", "Category", "Level", "Question", "Correct Answer"}}
	for i, q := range ts.Questions {
		questionRows = append(questionRows, []interface{}{i + 1, q.ID, q.Category, q.Level, q.Question, q.CorrectAns})
	}
	if err := writeRows(f, "Questions", questionRows); err != nil {
		return nil, err
	}

	byUser := make(map[uint][]model.StudentActivity)
	for _, a := range activities {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	for _, e := range entries {
		name := sheetName(e.Rank, e.FullName)
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		score := ScoreAnswers(ts.Questions, LatestAnswers(byUser[e.UserID]))
		rows := [][]interface{}{
			{"Name", e.FullName},
			{"Email", e.Email},
			{"Rank", e.Rank},
			{"Correct", e.Correct},
			{},
			{"#", "Question", "Your Answer", "Correct Answer", "Result"},
		}
		for i, o := range score.Questions {
			answer, result := "", "Not attempted"
			if o.IsAttempted {
				answer = *o.UserAnswer
				result = "Wrong"
				if o.IsCorrect {
					result = "Correct"
				}
			}
			rows = append(rows, []interface{}{i + 1, o.Question, answer, o.CorrectAnswer, result})
		}
		if err := writeRows(f, name, rows); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExportService) ReportXLSX(ctx context.Context, testSeriesID uint) (*Export, error) {
	ts, err := s.Contests.FindByID(ctx, testSeriesID)
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
	f, err := BuildReportWorkbook(ts, entries, activities)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("testseries-%d-report.xlsx", ts.ID),
		ContentType: util.MimeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

// Archive stores the XLSX report and returns where it can be downloaded.
func (s *ExportService) Archive(ctx context.Context, testSeriesID uint) (string, error) {
	report, err := s.ReportXLSX(ctx, testSeriesID)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("exports/%d/%s-%s", testSeriesID, s.Now().Format("20060102150405"), report.Filename)
	url, err := s.Storage.Put(ctx, key, bytes.NewReader(report.Data), int64(len(report.Data)), report.ContentType)
	if err != nil {
		return "", err
	}
	logger.Log.Info("Contest report archived", zap.Uint("testSeriesId", testSeriesID), zap.String("key", key))
	return url, nil
}
