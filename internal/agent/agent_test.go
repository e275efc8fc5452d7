package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todo-agent-backend/internal/tools"
)

// fakeToolbox returns canned results and records what was asked of it.
type fakeToolbox struct {
	tasks    []tools.TaskSnapshot
	failAdd  bool
	failList bool

	addedTitle  string
	updatedID   string
	updatedWith string
	completedID string
	deletedID   string
}

func (f *fakeToolbox) AddTask(_ context.Context, title, description string) tools.Call {
	f.addedTitle = title
	if f.failAdd {
		return tools.Call{
			ToolName: tools.AddTaskToolName,
			Result:   tools.Result{Success: false, Error: "database unavailable"},
		}
	}
	return tools.Call{
		ToolName:   tools.AddTaskToolName,
		Parameters: map[string]interface{}{"title": title, "description": description},
		Result:     tools.Result{Success: true},
	}
}

func (f *fakeToolbox) ListTasks(_ context.Context, statusFilter string) tools.Call {
	if f.failList {
		return tools.Call{
			ToolName: tools.ListTasksToolName,
			Result:   tools.Result{Success: false, Error: "database unavailable"},
		}
	}
	return tools.Call{
		ToolName:   tools.ListTasksToolName,
		Parameters: map[string]interface{}{"status": statusFilter},
		Result: tools.Result{
			Success: true,
			Data:    map[string]interface{}{"tasks": f.tasks, "count": len(f.tasks)},
		},
	}
}

func (f *fakeToolbox) UpdateTask(_ context.Context, taskID, title string) tools.Call {
	f.updatedID, f.updatedWith = taskID, title
	return tools.Call{ToolName: tools.UpdateTaskToolName, Result: tools.Result{Success: true}}
}

func (f *fakeToolbox) CompleteTask(_ context.Context, taskID string) tools.Call {
	f.completedID = taskID
	return tools.Call{ToolName: tools.CompleteTaskToolName, Result: tools.Result{Success: true}}
}

func (f *fakeToolbox) DeleteTask(_ context.Context, taskID string) tools.Call {
	f.deletedID = taskID
	return tools.Call{ToolName: tools.DeleteTaskToolName, Result: tools.Result{Success: true}}
}

type fakeRecorder struct {
	calls []tools.Call
	err   error
}

func (r *fakeRecorder) RecordToolCall(_ context.Context, call tools.Call) error {
	r.calls = append(r.calls, call)
	return r.err
}

func newTestAgent(tb *fakeToolbox, rec *fakeRecorder) *Agent {
	return New(tb, rec, zap.NewNop())
}

func TestProcessMessageAdd(t *testing.T) {
	tb := &fakeToolbox{}
	rec := &fakeRecorder{}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "Add a task to buy milk", Context{})

	assert.Equal(t, IntentAddTask, resp.Intent)
	assert.Equal(t, "I've added the task 'Buy milk' to your list.", resp.Text)
	assert.Equal(t, "Buy milk", tb.addedTitle)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, tools.AddTaskToolName, resp.ToolCalls[0].ToolName)
	assert.Len(t, rec.calls, 1)
}

func TestProcessMessageAddFailure(t *testing.T) {
	tb := &fakeToolbox{failAdd: true}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "add a task to buy milk", Context{})

	assert.Equal(t, "Sorry, I couldn't add the task: database unavailable", resp.Text)
}

func TestProcessMessageAddTooVague(t *testing.T) {
	tb := &fakeToolbox{}
	rec := &fakeRecorder{}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "add me", Context{})

	assert.Equal(t, IntentAddTask, resp.Intent)
	assert.Equal(t, "I couldn't understand what task you wanted to add. Please be more specific.", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Empty(t, rec.calls)
}

func TestProcessMessageListEmpty(t *testing.T) {
	tb := &fakeToolbox{}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "show me my tasks", Context{})

	assert.Equal(t, IntentListTasks, resp.Intent)
	assert.Equal(t, "You don't have any tasks yet.", resp.Text)
	assert.Len(t, resp.ToolCalls, 1)
}

func TestProcessMessageList(t *testing.T) {
	tb := &fakeToolbox{tasks: []tools.TaskSnapshot{
		{ID: "1", Title: "Buy milk"},
		{ID: "2", Title: "Pay bills"},
		{ID: "3", Title: "Walk the dog"},
		{ID: "4", Title: "Call mom"},
		{ID: "5", Title: "Water plants"},
		{ID: "6", Title: "File taxes"},
	}}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "show me my tasks", Context{})

	assert.Equal(t, "You have 6 tasks. Here are some: Buy milk, Pay bills, Walk the dog, Call mom, Water plants", resp.Text)
}

func TestProcessMessageListFailure(t *testing.T) {
	tb := &fakeToolbox{failList: true}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "show me my tasks", Context{})

	assert.Equal(t, "I couldn't retrieve your tasks.", resp.Text)
}

func TestProcessMessageCompleteWithoutIdentifier(t *testing.T) {
	tb := &fakeToolbox{}
	rec := &fakeRecorder{}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "mark task done", Context{})

	assert.Equal(t, IntentCompleteTask, resp.Intent)
	assert.Equal(t, "To complete a task, please specify which task you want to complete.", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Empty(t, rec.calls)
}

func TestProcessMessageCompleteWithCarryover(t *testing.T) {
	tb := &fakeToolbox{tasks: []tools.TaskSnapshot{
		{ID: "task-1", Title: "Call mom"},
		{ID: "task-2", Title: "Buy milk"},
	}}
	rec := &fakeRecorder{}
	convCtx := BuildContext([]MessageView{
		{Role: "user", Content: "I need to add a task to call mom"},
	}, 10)

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "complete that task", convCtx)

	assert.Equal(t, IntentCompleteTask, resp.Intent)
	assert.Equal(t, "I've marked the task 'Call mom' as completed.", resp.Text)
	assert.Equal(t, "task-1", tb.completedID)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, tools.ListTasksToolName, resp.ToolCalls[0].ToolName)
	assert.Equal(t, tools.CompleteTaskToolName, resp.ToolCalls[1].ToolName)
}

func TestProcessMessageCompleteNoMatch(t *testing.T) {
	tb := &fakeToolbox{tasks: []tools.TaskSnapshot{{ID: "1", Title: "Buy milk"}}}
	rec := &fakeRecorder{}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "complete xyzzy task", Context{})

	assert.Equal(t, "I couldn't find a task matching 'xyzzy'. Could you clarify which task you want to complete?", resp.Text)
	assert.Empty(t, resp.ToolCalls)
	// The list lookup still ran and was recorded.
	assert.Len(t, rec.calls, 1)
}

func TestProcessMessageUpdate(t *testing.T) {
	tb := &fakeToolbox{tasks: []tools.TaskSnapshot{
		{ID: "task-9", Title: "pay bills"},
	}}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "update task pay bills to pay rent", Context{})

	assert.Equal(t, IntentUpdateTask, resp.Intent)
	assert.Equal(t, "I've updated the task 'pay bills' to 'Pay rent'.", resp.Text)
	assert.Equal(t, "task-9", tb.updatedID)
	assert.Equal(t, "Pay rent", tb.updatedWith)
	assert.Len(t, resp.ToolCalls, 2)
}

func TestProcessMessageUpdateWithoutNewTitle(t *testing.T) {
	tb := &fakeToolbox{}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "update the report task", Context{})

	assert.Equal(t, "To update a task, please specify which task and the new information.", resp.Text)
	assert.Empty(t, resp.ToolCalls)
}

func TestProcessMessageDelete(t *testing.T) {
	tb := &fakeToolbox{tasks: []tools.TaskSnapshot{
		{ID: "task-3", Title: "Dentist appointment"},
	}}

	resp := newTestAgent(tb, &fakeRecorder{}).ProcessMessage(context.Background(), "delete the dentist task", Context{})

	assert.Equal(t, IntentDeleteTask, resp.Intent)
	assert.Equal(t, "I've deleted the task 'Dentist appointment'.", resp.Text)
	assert.Equal(t, "task-3", tb.deletedID)
	assert.Len(t, resp.ToolCalls, 2)
}

func TestProcessMessageUnknown(t *testing.T) {
	tb := &fakeToolbox{}
	rec := &fakeRecorder{}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "Hello there", Context{})

	assert.Equal(t, IntentUnknown, resp.Intent)
	assert.Contains(t, resp.Text, "I received your message: 'Hello there'.")
	assert.Contains(t, resp.Text, "Add a task to buy groceries")
	assert.Empty(t, resp.ToolCalls)
	assert.Empty(t, rec.calls)
}

// Recording failures are logged and swallowed; the response is built
// from the tool result regardless.
func TestProcessMessageRecorderFailureIsSwallowed(t *testing.T) {
	tb := &fakeToolbox{}
	rec := &fakeRecorder{err: errors.New("insert failed")}

	resp := newTestAgent(tb, rec).ProcessMessage(context.Background(), "add a task to buy milk", Context{})

	assert.Equal(t, "I've added the task 'Buy milk' to your list.", resp.Text)
	assert.Len(t, rec.calls, 1)
}
