package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("task not found")
	ErrEmptyTitle    = errors.New("task title is required")
	ErrInvalidStatus = errors.New("invalid task status")
)

// Service owns all task persistence. Every method is scoped to the
// owning user; a task id belonging to another user behaves as missing.
type Service struct {
	db  *sql.DB
	log *zap.Logger
}

func NewService(db *sql.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("tasks")}
}

const taskColumns = `id, user_id, title, description, status, created_at, updated_at, completed_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*Task, error) {
	var t Task
	var desc sql.NullString
	var completed sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &desc, &t.Status, &t.CreatedAt, &t.UpdatedAt, &completed)
	if err != nil {
		return nil, err
	}
	t.Description = desc.String
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	return &t, nil
}

// Create inserts a new pending task for the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, description string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	id := uuid.New()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+taskColumns,
		id, userID, title, description, StatusPending,
	)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Info("task created", zap.String("task_id", task.ID.String()), zap.String("user_id", userID.String()))
	return task, nil
}

// List returns the user's tasks, newest first. The ordering is the
// deterministic iteration order the agent's resolver tie-break relies on.
func (s *Service) List(ctx context.Context, userID uuid.UUID, statusFilter string) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1`
	args := []interface{}{userID}

	if statusFilter != "" {
		if !ValidStatus(statusFilter) {
			return nil, ErrInvalidStatus
		}
		query += ` AND status=$2`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Get returns a single task owned by the user.
func (s *Service) Get(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id=$1 AND user_id=$2`,
		taskID, userID,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Update applies the non-nil fields to the user's task. A status change
// to completed stamps completed_at; leaving completed clears it.
func (s *Service) Update(ctx context.Context, userID, taskID uuid.UUID, title, description, status *string) (*Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, ErrEmptyTitle
		}
		task.Title = t
	}
	if description != nil {
		task.Description = *description
	}
	if status != nil {
		if !ValidStatus(*status) {
			return nil, ErrInvalidStatus
		}
		if *status == StatusCompleted && task.Status != StatusCompleted {
			now := time.Now().UTC()
			task.CompletedAt = &now
		}
		if *status != StatusCompleted {
			task.CompletedAt = nil
		}
		task.Status = *status
	}

	row := s.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET title=$1, description=$2, status=$3, completed_at=$4, updated_at=NOW()
		 WHERE id=$5 AND user_id=$6
		 RETURNING `+taskColumns,
		task.Title, task.Description, task.Status, task.CompletedAt, taskID, userID,
	)
	updated, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

// Complete marks the user's task completed.
func (s *Service) Complete(ctx context.Context, userID, taskID uuid.UUID) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET status=$1, completed_at=NOW(), updated_at=NOW()
		 WHERE id=$2 AND user_id=$3
		 RETURNING `+taskColumns,
		StatusCompleted, taskID, userID,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return task, nil
}

// Delete removes the user's task.
func (s *Service) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id=$1 AND user_id=$2`,
		taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
