package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var taskCols = []string{"id", "user_id", "title", "description", "status", "created_at", "updated_at", "completed_at"}

func taskRow(id, userID uuid.UUID, title, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskCols).
		AddRow(id, userID, title, "", status, now, now, nil)
}

func TestServiceCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(sqlmock.AnyArg(), userID, "Buy milk", "", StatusPending).
		WillReturnRows(taskRow(taskID, userID, "Buy milk", StatusPending))

	task, err := svc.Create(context.Background(), userID, "  Buy milk  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, StatusPending, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateEmptyTitle(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())

	_, err = svc.Create(context.Background(), uuid.New(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestServiceListNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()

	now := time.Now()
	rows := sqlmock.NewRows(taskCols).
		AddRow(uuid.New(), userID, "Newest", "", StatusPending, now, now, nil).
		AddRow(uuid.New(), userID, "Oldest", "", StatusPending, now.Add(-time.Hour), now.Add(-time.Hour), nil)

	mock.ExpectQuery(`FROM tasks WHERE user_id=\$1 ORDER BY created_at DESC`).
		WithArgs(userID).
		WillReturnRows(rows)

	got, err := svc.List(context.Background(), userID, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Newest", got[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListStatusFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()

	mock.ExpectQuery(`FROM tasks WHERE user_id=\$1 AND status=\$2 ORDER BY created_at DESC`).
		WithArgs(userID, StatusCompleted).
		WillReturnRows(sqlmock.NewRows(taskCols))

	got, err := svc.List(context.Background(), userID, StatusCompleted)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListInvalidStatus(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())

	_, err = svc.List(context.Background(), uuid.New(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestServiceGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery(`FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(taskID, userID).
		WillReturnRows(sqlmock.NewRows(taskCols))

	_, err = svc.Get(context.Background(), userID, taskID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceUpdateTitle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery(`FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(taskID, userID).
		WillReturnRows(taskRow(taskID, userID, "Old title", StatusPending))

	mock.ExpectQuery(`UPDATE tasks`).
		WithArgs("New title", "", StatusPending, nil, taskID, userID).
		WillReturnRows(taskRow(taskID, userID, "New title", StatusPending))

	title := "New title"
	task, err := svc.Update(context.Background(), userID, taskID, &title, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "New title", task.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateToCompletedStampsTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery(`FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(taskID, userID).
		WillReturnRows(taskRow(taskID, userID, "Buy milk", StatusPending))

	now := time.Now()
	completedRows := sqlmock.NewRows(taskCols).
		AddRow(taskID, userID, "Buy milk", "", StatusCompleted, now, now, now)
	mock.ExpectQuery(`UPDATE tasks`).
		WithArgs("Buy milk", "", StatusCompleted, sqlmock.AnyArg(), taskID, userID).
		WillReturnRows(completedRows)

	status := StatusCompleted
	task, err := svc.Update(context.Background(), userID, taskID, nil, nil, &status)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
}

func TestServiceComplete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	now := time.Now()
	rows := sqlmock.NewRows(taskCols).
		AddRow(taskID, userID, "Buy milk", "", StatusCompleted, now, now, now)
	mock.ExpectQuery(`UPDATE tasks`).
		WithArgs(StatusCompleted, taskID, userID).
		WillReturnRows(rows)

	task, err := svc.Complete(context.Background(), userID, taskID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
}

func TestServiceCompleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())

	mock.ExpectQuery(`UPDATE tasks`).
		WillReturnRows(sqlmock.NewRows(taskCols))

	_, err = svc.Complete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())
	userID := uuid.New()
	taskID := uuid.New()

	mock.ExpectExec(`DELETE FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(taskID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, svc.Delete(context.Background(), userID, taskID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceDeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())

	mock.ExpectExec(`DELETE FROM tasks`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = svc.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, zap.NewNop())

	mock.ExpectExec(`DELETE FROM tasks`).
		WillReturnError(errors.New("connection reset"))

	err = svc.Delete(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
