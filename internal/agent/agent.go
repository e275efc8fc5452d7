// Package agent implements the rule-based natural-language engine that
// maps chat utterances to task CRUD operations: keyword intent
// classification, phrase extraction, conversation carryover, and
// three-tier fuzzy task resolution.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"todo-agent-backend/internal/tools"
)

// Toolbox is the set of CRUD tools the agent can dispatch. Implemented
// by tools.Toolbox, bound to one user per request.
type Toolbox interface {
	AddTask(ctx context.Context, title, description string) tools.Call
	ListTasks(ctx context.Context, statusFilter string) tools.Call
	UpdateTask(ctx context.Context, taskID, title string) tools.Call
	CompleteTask(ctx context.Context, taskID string) tools.Call
	DeleteTask(ctx context.Context, taskID string) tools.Call
}

// Recorder persists tool-call audit records. Recording is best-effort:
// the agent logs and discards failures so the user-visible response is
// unaffected.
type Recorder interface {
	RecordToolCall(ctx context.Context, call tools.Call) error
}

// Response is what one processed utterance produces.
type Response struct {
	Text      string       `json:"response"`
	ToolCalls []tools.Call `json:"tool_calls"`
	Intent    Intent       `json:"intent"`
}

// Agent processes exactly one message per instance. It holds
// collaborators only; conversation context is threaded through
// ProcessMessage as a value, never stored.
type Agent struct {
	tools    Toolbox
	recorder Recorder
	log      *zap.Logger
}

func New(tb Toolbox, recorder Recorder, log *zap.Logger) *Agent {
	return &Agent{tools: tb, recorder: recorder, log: log.Named("agent")}
}

// ProcessMessage classifies the utterance, extracts parameters,
// resolves task references against the live task list, dispatches the
// matching tool, and composes a natural-language reply. It never
// returns an error: every failure path terminates in response text.
func (a *Agent) ProcessMessage(ctx context.Context, message string, convCtx Context) Response {
	normalized := Normalize(message)
	intent := Classify(normalized)

	resp := Response{Intent: intent, ToolCalls: []tools.Call{}}

	switch intent {
	case IntentAddTask:
		a.handleAdd(ctx, normalized, &resp)
	case IntentListTasks:
		a.handleList(ctx, normalized, &resp)
	case IntentCompleteTask:
		a.handleComplete(ctx, normalized, convCtx, &resp)
	case IntentUpdateTask:
		a.handleUpdate(ctx, normalized, convCtx, &resp)
	case IntentDeleteTask:
		a.handleDelete(ctx, normalized, convCtx, &resp)
	default:
		resp.Text = fmt.Sprintf(
			"I received your message: '%s'. I can help you manage your tasks by adding, listing, "+
				"updating, completing, or deleting them. Try saying something like 'Add a task to buy groceries' "+
				"or 'Show me my tasks'.", message)
	}

	a.log.Info("message processed",
		zap.String("intent", string(intent)),
		zap.Int("tool_calls", len(resp.ToolCalls)),
	)
	return resp
}

func (a *Agent) handleAdd(ctx context.Context, normalized string, resp *Response) {
	title, description, ok := ExtractTaskDetails(normalized)
	if !ok {
		resp.Text = "I couldn't understand what task you wanted to add. Please be more specific."
		return
	}

	call := a.dispatch(ctx, a.tools.AddTask(ctx, title, description))
	resp.ToolCalls = append(resp.ToolCalls, call)

	if call.Result.Success {
		resp.Text = fmt.Sprintf("I've added the task '%s' to your list.", title)
	} else {
		resp.Text = fmt.Sprintf("Sorry, I couldn't add the task: %s", errorOrUnknown(call.Result))
	}
}

func (a *Agent) handleList(ctx context.Context, normalized string, resp *Response) {
	statusFilter := ExtractStatusFilter(normalized)

	call := a.dispatch(ctx, a.tools.ListTasks(ctx, statusFilter))
	resp.ToolCalls = append(resp.ToolCalls, call)

	if !call.Result.Success {
		resp.Text = "I couldn't retrieve your tasks."
		return
	}

	list := tasksFromCall(call)
	if len(list) == 0 {
		resp.Text = "You don't have any tasks yet."
		return
	}

	titles := make([]string, 0, 5)
	for _, t := range list {
		titles = append(titles, t.Title)
		if len(titles) == 5 {
			break
		}
	}
	resp.Text = fmt.Sprintf("You have %d tasks. Here are some: %s", len(list), strings.Join(titles, ", "))
}

func (a *Agent) handleComplete(ctx context.Context, normalized string, convCtx Context, resp *Response) {
	identifier := ExtractTaskIdentifier(normalized)
	if identifier == "" && !convCtx.Empty() {
		identifier = InferIdentifier(convCtx)
	}
	if identifier == "" {
		resp.Text = "To complete a task, please specify which task you want to complete."
		return
	}

	listCall := a.dispatch(ctx, a.tools.ListTasks(ctx, ""))
	if !listCall.Result.Success {
		resp.Text = "I couldn't find your tasks to complete."
		return
	}

	target := Resolve(tasksFromCall(listCall), identifier)
	if target == nil {
		resp.Text = fmt.Sprintf("I couldn't find a task matching '%s'. Could you clarify which task you want to complete?", identifier)
		return
	}

	completeCall := a.dispatch(ctx, a.tools.CompleteTask(ctx, target.ID))
	resp.ToolCalls = append(resp.ToolCalls, listCall, completeCall)

	if completeCall.Result.Success {
		resp.Text = fmt.Sprintf("I've marked the task '%s' as completed.", target.Title)
	} else {
		resp.Text = fmt.Sprintf("Sorry, I couldn't complete the task: %s", errorOrUnknown(completeCall.Result))
	}
}

func (a *Agent) handleUpdate(ctx context.Context, normalized string, convCtx Context, resp *Response) {
	identifier, newTitle, _ := ExtractTaskAndNewTitle(normalized)
	if identifier == "" && !convCtx.Empty() {
		identifier = InferIdentifier(convCtx)
	}
	if identifier == "" || newTitle == "" {
		resp.Text = "To update a task, please specify which task and the new information."
		return
	}

	listCall := a.dispatch(ctx, a.tools.ListTasks(ctx, ""))
	if !listCall.Result.Success {
		resp.Text = "I couldn't find your tasks to update."
		return
	}

	target := Resolve(tasksFromCall(listCall), identifier)
	if target == nil {
		resp.Text = fmt.Sprintf("I couldn't find a task matching '%s'. Could you clarify which task you want to update?", identifier)
		return
	}

	updateCall := a.dispatch(ctx, a.tools.UpdateTask(ctx, target.ID, newTitle))
	resp.ToolCalls = append(resp.ToolCalls, listCall, updateCall)

	if updateCall.Result.Success {
		resp.Text = fmt.Sprintf("I've updated the task '%s' to '%s'.", target.Title, newTitle)
	} else {
		resp.Text = fmt.Sprintf("Sorry, I couldn't update the task: %s", errorOrUnknown(updateCall.Result))
	}
}

func (a *Agent) handleDelete(ctx context.Context, normalized string, convCtx Context, resp *Response) {
	identifier := ExtractTaskIdentifier(normalized)
	if identifier == "" && !convCtx.Empty() {
		identifier = InferIdentifier(convCtx)
	}
	if identifier == "" {
		resp.Text = "To delete a task, please specify which task you want to delete."
		return
	}

	listCall := a.dispatch(ctx, a.tools.ListTasks(ctx, ""))
	if !listCall.Result.Success {
		resp.Text = "I couldn't find your tasks to delete."
		return
	}

	target := Resolve(tasksFromCall(listCall), identifier)
	if target == nil {
		resp.Text = fmt.Sprintf("I couldn't find a task matching '%s'. Could you clarify which task you want to delete?", identifier)
		return
	}

	deleteCall := a.dispatch(ctx, a.tools.DeleteTask(ctx, target.ID))
	resp.ToolCalls = append(resp.ToolCalls, listCall, deleteCall)

	if deleteCall.Result.Success {
		resp.Text = fmt.Sprintf("I've deleted the task '%s'.", target.Title)
	} else {
		resp.Text = fmt.Sprintf("Sorry, I couldn't delete the task: %s", errorOrUnknown(deleteCall.Result))
	}
}

// dispatch records the tool call best-effort and passes it through.
func (a *Agent) dispatch(ctx context.Context, call tools.Call) tools.Call {
	if a.recorder != nil {
		if err := a.recorder.RecordToolCall(ctx, call); err != nil {
			a.log.Warn("tool call record failed",
				zap.String("tool", call.ToolName),
				zap.Error(err),
			)
		}
	}
	return call
}

func tasksFromCall(call tools.Call) []tools.TaskSnapshot {
	if call.Result.Data == nil {
		return nil
	}
	list, _ := call.Result.Data["tasks"].([]tools.TaskSnapshot)
	return list
}

func errorOrUnknown(res tools.Result) string {
	if res.Error != "" {
		return res.Error
	}
	return "Unknown error"
}
