package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteLeaderboardCSV(t *testing.T) {
	submitted := contestStart.Add(12 * time.Minute)
	entries := []LeaderboardEntry{
		{Rank: 1, FullName: "Asha, K", Email: "asha@example.com", Correct: 2, Attempted: 3, TotalQuestions: 3,
			Percentage: 66.67, Accuracy: 66.67, TimeTaken: 12, SubmittedAt: &submitted},
		{Rank: 2, FullName: "Ravi", Email: "ravi@example.com", TotalQuestions: 3},
	}

	data, err := WriteLeaderboardCSV(entries)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, leaderboardHeader, records[0])
	assert.Equal(t, []string{"1", "Asha, K", "asha@example.com", "2", "3", "3", "66.67", "66.67", "12.00", "2026-03-01 10:12:00"}, records[1])
	assert.Equal(t, "", records[2][9])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "1. Asha", sheetName(1, "Asha"))
	assert.Equal(t, "2. ab", sheetName(2, "a/b?"))
	assert.Equal(t, "3. Participant", sheetName(3, " :[]"))
	long := sheetName(10, strings.Repeat("x", 40))
	assert.Equal(t, maxSheetName, len([]rune(long)))
}

func TestBuildReportWorkbook(t *testing.T) {
	ts := contestFixture()
	entries := []LeaderboardEntry{
		{Rank: 1, UserID: 10, FullName: "Asha", Correct: 1, TotalQuestions: 3},
		{Rank: 2, UserID: 20, FullName: "Ravi", TotalQuestions: 3},
	}
	activities := []model.StudentActivity{
		answer(1, 10, 1, contestStart, "A"),
		answer(2, 20, 2, contestStart, "C"),
	}

	f, err := BuildReportWorkbook(ts, entries, activities)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Questions", "1. Asha", "2. Ravi"}, f.GetSheetList())

	title, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly", title)
	name, err := f.GetCellValue("Summary", "B8")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)

	rows, err := f.GetRows("2. Ravi")
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"2", "Question text", "C", "B", "Wrong"}, rows[7])
	assert.Equal(t, "Not attempted", rows[8][4])
}

func TestExportArchive(t *testing.T) {
	root := t.TempDir()
	ts := contestFixture()
	contests := newFakeContests(*ts)
	activities := &fakeActivities{}
	activities.add(answer(0, 10, 1, contestStart, "A"))
	participations := newFakeParticipations(activities, model.Participation{
		BaseModel: model.BaseModel{ID: 1}, UserID: 10, TestSeriesID: uintPtr(1), StartTime: contestStart,
	})
	users := newFakeUsers(model.User{BaseModel: model.BaseModel{ID: 10}, FullName: "Asha"})
	leaderboard := NewLeaderboardService(contests, participations, activities, users, nil)

	svc := NewExportService(contests, activities, leaderboard, &LocalStorageProvider{Root: root})
	svc.Now = fixedClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	csvExport, err := svc.LeaderboardCSV(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, util.MimeCSV, csvExport.ContentType)
	assert.Contains(t, string(csvExport.Data), "Asha")

	url, err := svc.Archive(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/exports/1/20260302080000-testseries-1-report.xlsx", url)

	stored := filepath.Join(root, "exports", "1", "20260302080000-testseries-1-report.xlsx")
	file, err := os.Open(stored)
	require.NoError(t, err)
	defer file.Close()
	wb, err := excelize.OpenReader(file)
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), "1. Asha")

	_, err = svc.LeaderboardCSV(context.Background(), 404)
	assert.ErrorIs(t, err, util.ErrNotFound)
}
