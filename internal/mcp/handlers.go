// Package mcp exposes the five task tools as authenticated HTTP
// endpoints, so external clients can invoke them directly without
// going through the conversational agent. Each endpoint returns the
// tool's Result envelope on success and maps failures onto HTTP
// status codes.
package mcp

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"todo-agent-backend/internal/auth"
	"todo-agent-backend/internal/tasks"
	"todo-agent-backend/internal/tools"
)

type Handler struct {
	tasks *tasks.Service
	log   *zap.Logger
}

func NewHandler(taskSvc *tasks.Service, log *zap.Logger) *Handler {
	return &Handler{tasks: taskSvc, log: log.Named("mcp")}
}

type addTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type listTasksRequest struct {
	Status string `json:"status"`
}

type updateTaskRequest struct {
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

type taskIDRequest struct {
	TaskID string `json:"task_id"`
}

// AddTask handles POST /mcp/add_task.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	toolbox, ok := h.toolbox(w, r)
	if !ok {
		return
	}

	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	h.respond(w, toolbox.AddTask(r.Context(), req.Title, req.Description), http.StatusCreated)
}

// ListTasks handles POST /mcp/list_tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	toolbox, ok := h.toolbox(w, r)
	if !ok {
		return
	}

	var req listTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	h.respond(w, toolbox.ListTasks(r.Context(), req.Status), http.StatusOK)
}

// UpdateTask handles POST /mcp/update_task.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	toolbox, ok := h.toolbox(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	call := toolbox.UpdateTaskFields(r.Context(), req.TaskID, req.Title, req.Description, req.Status)
	h.respond(w, call, http.StatusOK)
}

// CompleteTask handles POST /mcp/complete_task.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	toolbox, ok := h.toolbox(w, r)
	if !ok {
		return
	}

	var req taskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	h.respond(w, toolbox.CompleteTask(r.Context(), req.TaskID), http.StatusOK)
}

// DeleteTask handles POST /mcp/delete_task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	toolbox, ok := h.toolbox(w, r)
	if !ok {
		return
	}

	var req taskIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	h.respond(w, toolbox.DeleteTask(r.Context(), req.TaskID), http.StatusOK)
}

func (h *Handler) toolbox(w http.ResponseWriter, r *http.Request) (*tools.Toolbox, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return tools.NewToolbox(h.tasks, userID), true
}

func (h *Handler) respond(w http.ResponseWriter, call tools.Call, successStatus int) {
	if !call.Result.Success {
		status := failureStatus(call.Result)
		if status == http.StatusInternalServerError {
			h.log.Error("tool execution failed",
				zap.String("tool", call.ToolName),
				zap.String("error", call.Result.Error),
			)
		}
		http.Error(w, call.Result.Message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(successStatus)
	json.NewEncoder(w).Encode(call.Result)
}

// failureStatus maps a tool failure onto an HTTP status by the same
// message cues the chat layer surfaces to users: missing/invalid
// parameters are client errors, unknown tasks are 404, anything else
// is a server error.
func failureStatus(res tools.Result) int {
	text := strings.ToLower(res.Message + " " + res.Error)
	switch {
	case strings.Contains(text, "not found"):
		return http.StatusNotFound
	case strings.Contains(text, "required"),
		strings.Contains(text, "empty"),
		strings.Contains(text, "invalid"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
