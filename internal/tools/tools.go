// Package tools wraps the task CRUD operations in the uniform
// tool-call shape the agent dispatches against. Each tool is a
// parameter-validated pass-through to the task service; the agent
// never touches the service directly.
package tools

// Result is the uniform outcome of a tool execution.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Call records one tool invocation: which tool ran, with what
// parameters, and what came back.
type Call struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Result     Result                 `json:"result"`
}

// TaskSnapshot is the read view of a task the list tool hands to the
// agent for resolution.
type TaskSnapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Tool names.
const (
	AddTaskToolName      = "add_task_tool"
	ListTasksToolName    = "list_tasks_tool"
	UpdateTaskToolName   = "update_task_tool"
	CompleteTaskToolName = "complete_task_tool"
	DeleteTaskToolName   = "delete_task_tool"
)

func failure(message, errMsg string) Result {
	return Result{Success: false, Message: message, Error: errMsg}
}
