package audit

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"genbiapi/config"
	"genbiapi/models"
	"genbiapi/services/executor"
	"genbiapi/services/pipeline"
)

func newMockedService(t *testing.T) (AuditService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	oldDB := config.DB
	config.DB = gdb
	t.Cleanup(func() { config.DB = oldDB })

	return NewAuditService(), mock
}

// TestRecord_WritesHistoryRow checks that a pipeline result is persisted
// with its outcome and row count.
func TestRecord_WritesHistoryRow(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `query_history`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	svc.Record(&models.Principal{UserID: 1, Username: "alice"}, &pipeline.Result{
		Question:   "total per customer",
		SQL:        "SELECT 1",
		Outcome:    pipeline.OutcomeOK,
		Confidence: 0.9,
		Rows:       &executor.RowSet{Rows: [][]interface{}{{1}, {2}}},
	}, 120*time.Millisecond)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecord_FailureIsSwallowed checks that a failed audit write never
// panics or propagates.
func TestRecord_FailureIsSwallowed(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `query_history`").
		WillReturnError(gorm.ErrInvalidDB)
	mock.ExpectRollback()

	svc.Record(&models.Principal{UserID: 1, Username: "alice"}, &pipeline.Result{
		Question: "q",
		Outcome:  pipeline.OutcomeExecutionFailed,
		Error:    "boom",
	}, time.Millisecond)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRecent delegates to the history table ordered by recency.
func TestRecent(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectQuery("SELECT \\* FROM `query_history` ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "question", "outcome"}).
			AddRow(2, "alice", "newest", "OK").
			AddRow(1, "bob", "older", "AccessDenied"))

	entries, err := svc.Recent(50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Username)
}
