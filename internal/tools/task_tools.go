package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"todo-agent-backend/internal/tasks"
)

// Toolbox binds the five task tools to one user for the duration of a
// request.
type Toolbox struct {
	svc    *tasks.Service
	userID uuid.UUID
}

func NewToolbox(svc *tasks.Service, userID uuid.UUID) *Toolbox {
	return &Toolbox{svc: svc, userID: userID}
}

func snapshot(t tasks.Task) TaskSnapshot {
	return TaskSnapshot{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
	}
}

// AddTask creates a task. Fails on an empty title.
func (tb *Toolbox) AddTask(ctx context.Context, title, description string) Call {
	params := map[string]interface{}{"title": title, "description": description}

	if strings.TrimSpace(title) == "" {
		return Call{
			ToolName:   AddTaskToolName,
			Parameters: params,
			Result:     failure("Task title is required and cannot be empty", "Title is required"),
		}
	}

	task, err := tb.svc.Create(ctx, tb.userID, title, description)
	if err != nil {
		return Call{
			ToolName:   AddTaskToolName,
			Parameters: params,
			Result:     failure("Failed to create task", err.Error()),
		}
	}

	return Call{
		ToolName:   AddTaskToolName,
		Parameters: params,
		Result: Result{
			Success: true,
			Message: "Successfully created task '" + task.Title + "'",
			Data: map[string]interface{}{
				"task_id":    task.ID.String(),
				"title":      task.Title,
				"status":     task.Status,
				"created_at": task.CreatedAt,
			},
		},
	}
}

// ListTasks returns the user's tasks, optionally filtered by status.
// The snapshots in Data keep the service's listing order.
func (tb *Toolbox) ListTasks(ctx context.Context, statusFilter string) Call {
	params := map[string]interface{}{"status": statusFilter}

	list, err := tb.svc.List(ctx, tb.userID, statusFilter)
	if err != nil {
		return Call{
			ToolName:   ListTasksToolName,
			Parameters: params,
			Result:     failure("Failed to list tasks", err.Error()),
		}
	}

	snapshots := make([]TaskSnapshot, 0, len(list))
	for _, t := range list {
		snapshots = append(snapshots, snapshot(t))
	}

	return Call{
		ToolName:   ListTasksToolName,
		Parameters: params,
		Result: Result{
			Success: true,
			Message: "Retrieved tasks",
			Data: map[string]interface{}{
				"tasks": snapshots,
				"count": len(snapshots),
			},
		},
	}
}

// UpdateTask changes the title of a task identified by its id string.
func (tb *Toolbox) UpdateTask(ctx context.Context, taskID, title string) Call {
	return tb.UpdateTaskFields(ctx, taskID, &title, nil, nil)
}

// UpdateTaskFields applies any combination of title, description and
// status to a task. Nil fields are left unchanged.
func (tb *Toolbox) UpdateTaskFields(ctx context.Context, taskID string, title, description, status *string) Call {
	params := map[string]interface{}{"task_id": taskID}
	if title != nil {
		params["title"] = *title
	}
	if description != nil {
		params["description"] = *description
	}
	if status != nil {
		params["status"] = *status
	}

	id, err := uuid.Parse(taskID)
	if err != nil {
		return Call{
			ToolName:   UpdateTaskToolName,
			Parameters: params,
			Result:     failure("Invalid task ID format", "Task ID must be a valid UUID"),
		}
	}

	task, err := tb.svc.Update(ctx, tb.userID, id, title, description, status)
	if errors.Is(err, tasks.ErrNotFound) {
		return Call{
			ToolName:   UpdateTaskToolName,
			Parameters: params,
			Result:     failure("Task not found or user doesn't have permission to update it", "Task not found"),
		}
	}
	if err != nil {
		return Call{
			ToolName:   UpdateTaskToolName,
			Parameters: params,
			Result:     failure("Failed to update task", err.Error()),
		}
	}

	return Call{
		ToolName:   UpdateTaskToolName,
		Parameters: params,
		Result: Result{
			Success: true,
			Message: "Successfully updated task '" + task.Title + "'",
			Data: map[string]interface{}{
				"task_id": task.ID.String(),
				"title":   task.Title,
				"status":  task.Status,
			},
		},
	}
}

// CompleteTask marks a task completed.
func (tb *Toolbox) CompleteTask(ctx context.Context, taskID string) Call {
	params := map[string]interface{}{"task_id": taskID}

	id, err := uuid.Parse(taskID)
	if err != nil {
		return Call{
			ToolName:   CompleteTaskToolName,
			Parameters: params,
			Result:     failure("Invalid task ID format", "Task ID must be a valid UUID"),
		}
	}

	task, err := tb.svc.Complete(ctx, tb.userID, id)
	if errors.Is(err, tasks.ErrNotFound) {
		return Call{
			ToolName:   CompleteTaskToolName,
			Parameters: params,
			Result:     failure("Task not found or user doesn't have permission to complete it", "Task not found"),
		}
	}
	if err != nil {
		return Call{
			ToolName:   CompleteTaskToolName,
			Parameters: params,
			Result:     failure("Failed to complete task", err.Error()),
		}
	}

	return Call{
		ToolName:   CompleteTaskToolName,
		Parameters: params,
		Result: Result{
			Success: true,
			Message: "Successfully completed task '" + task.Title + "'",
			Data: map[string]interface{}{
				"task_id": task.ID.String(),
				"title":   task.Title,
				"status":  task.Status,
			},
		},
	}
}

// DeleteTask removes a task.
func (tb *Toolbox) DeleteTask(ctx context.Context, taskID string) Call {
	params := map[string]interface{}{"task_id": taskID}

	id, err := uuid.Parse(taskID)
	if err != nil {
		return Call{
			ToolName:   DeleteTaskToolName,
			Parameters: params,
			Result:     failure("Invalid task ID format", "Task ID must be a valid UUID"),
		}
	}

	err = tb.svc.Delete(ctx, tb.userID, id)
	if errors.Is(err, tasks.ErrNotFound) {
		return Call{
			ToolName:   DeleteTaskToolName,
			Parameters: params,
			Result:     failure("Task not found or user doesn't have permission to delete it", "Task not found"),
		}
	}
	if err != nil {
		return Call{
			ToolName:   DeleteTaskToolName,
			Parameters: params,
			Result:     failure("Failed to delete task", err.Error()),
		}
	}

	return Call{
		ToolName:   DeleteTaskToolName,
		Parameters: params,
		Result: Result{
			Success: true,
			Message: "Successfully deleted task",
			Data: map[string]interface{}{
				"task_id": taskID,
				"deleted": true,
			},
		},
	}
}
