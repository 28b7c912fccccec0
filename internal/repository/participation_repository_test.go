package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"placeprep_backend/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestClaimForClose(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(sqlmock.Sqlmock)
		wantClaimed bool
		expectError bool
	}{
		{
			name: "open participation is claimed",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantClaimed: true,
		},
		{
			name: "already submitted participation is left alone",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantClaimed: false,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
					WillReturnError(sql.ErrConnDone)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewParticipationRepository(db)
			tt.setupMock(mock)

			claimed, err := repo.ClaimForClose(context.Background(), 7, time.Now())

			if tt.expectError {
				assert.Error(t, err)
				assert.False(t, claimed)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantClaimed, claimed)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIncrementViolations(t *testing.T) {
	t.Run("returns the new counter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParticipationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET `violations`=violations + ?")).
			WithArgs(1, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `violations` FROM `participations`")).
			WillReturnRows(sqlmock.NewRows([]string{"violations"}).AddRow(2))

		violations, err := repo.IncrementViolations(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, 2, violations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown participation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParticipationRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.IncrementViolations(context.Background(), 99)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCloseWithActivities(t *testing.T) {
	answer := "B"
	tsID := uint(5)
	activities := []model.StudentActivity{
		{UserID: 1, QuestionID: 10, TestSeriesID: &tsID, Timestamp: time.Now(), SelectedAnswer: &answer},
	}

	t.Run("claim writes the answers", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParticipationRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `student_activities`")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		claimed, err := repo.CloseWithActivities(context.Background(), 7, time.Now(), activities)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost claim writes nothing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParticipationRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		claimed, err := repo.CloseWithActivities(context.Background(), 7, time.Now(), activities)
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParticipationRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `participations` SET")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `student_activities`")).
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		claimed, err := repo.CloseWithActivities(context.Background(), 7, time.Now(), activities)
		assert.Error(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
