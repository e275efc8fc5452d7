// Package chat exposes the conversational endpoint: it persists the
// exchange, feeds recent history to the agent, and turns whatever the
// agent did into a JSON reply. The endpoint answers 200 even when the
// agent blows up; the user gets a fallback sentence instead of a 500.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo-agent-backend/internal/agent"
	"todo-agent-backend/internal/auth"
	"todo-agent-backend/internal/conversations"
	"todo-agent-backend/internal/metrics"
	"todo-agent-backend/internal/tasks"
	"todo-agent-backend/internal/tools"
)

const fallbackReply = "I'm having trouble processing that request. Please try again."

// conversationStore is the slice of the conversation service the chat
// endpoint needs.
type conversationStore interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*conversations.Conversation, error)
	Get(ctx context.Context, conversationID, userID uuid.UUID) (*conversations.Conversation, error)
	AddMessage(ctx context.Context, conversationID, userID uuid.UUID, role, content string, metadata map[string]interface{}) (*conversations.Message, error)
	RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]conversations.Message, error)
	SaveToolCall(ctx context.Context, conversationID, messageID, userID uuid.UUID, toolName string, parameters, result map[string]interface{}) error
}

type Handler struct {
	conversations conversationStore
	tasks         *tasks.Service
	contextLimit  int
	log           *zap.Logger
}

func NewHandler(convs *conversations.Service, taskSvc *tasks.Service, contextLimit int, log *zap.Logger) *Handler {
	if contextLimit <= 0 {
		contextLimit = agent.DefaultContextMessages
	}
	return &Handler{
		conversations: convs,
		tasks:         taskSvc,
		contextLimit:  contextLimit,
		log:           log.Named("chat"),
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Response         string       `json:"response"`
	ConversationID   string       `json:"conversation_id"`
	MessageID        string       `json:"message_id"`
	ToolCalls        []tools.Call `json:"tool_calls"`
	Intent           string       `json:"intent"`
	ContextPreserved bool         `json:"context_preserved"`
}

// Message handles POST /api/chat.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	start := time.Now()

	conv, err := h.resolveConversation(ctx, userID, req.ConversationID)
	if err != nil {
		h.log.Error("conversation setup failed", zap.Error(err))
		http.Error(w, "could not start conversation", http.StatusInternalServerError)
		return
	}

	// History is loaded before the incoming message is stored so the
	// agent's carryover only sees prior turns.
	convCtx := h.loadContext(ctx, conv.ID, userID)

	userMsg, err := h.conversations.AddMessage(ctx, conv.ID, userID, conversations.RoleUser, req.Message, nil)
	if err != nil {
		h.log.Error("store user message failed", zap.Error(err))
		http.Error(w, "could not store message", http.StatusInternalServerError)
		return
	}

	recorder := &toolCallRecorder{
		store:          h.conversations,
		conversationID: conv.ID,
		messageID:      userMsg.ID,
		userID:         userID,
	}
	toolbox := tools.NewToolbox(h.tasks, userID)
	resp := h.process(ctx, toolbox, recorder, req.Message, convCtx)

	metrics.ChatMessages.WithLabelValues(string(resp.Intent)).Inc()
	for _, call := range resp.ToolCalls {
		outcome := "success"
		if !call.Result.Success {
			outcome = "failure"
		}
		metrics.ToolCalls.WithLabelValues(call.ToolName, outcome).Inc()
	}
	metrics.ChatDuration.Observe(time.Since(start).Seconds())

	if _, err := h.conversations.AddMessage(ctx, conv.ID, userID, conversations.RoleAssistant, resp.Text, assistantMetadata(resp)); err != nil {
		h.log.Error("store assistant message failed", zap.Error(err))
		http.Error(w, "could not store response", http.StatusInternalServerError)
		return
	}

	// message_id refers to the user's message that triggered the reply.
	writeJSON(w, http.StatusOK, chatResponse{
		Response:         resp.Text,
		ConversationID:   conv.ID.String(),
		MessageID:        userMsg.ID.String(),
		ToolCalls:        resp.ToolCalls,
		Intent:           string(resp.Intent),
		ContextPreserved: !convCtx.Empty(),
	})
}

// process runs the agent with a panic barrier: any panic inside the
// rule engine degrades to the fallback reply instead of a 500.
func (h *Handler) process(ctx context.Context, toolbox agent.Toolbox, recorder agent.Recorder, message string, convCtx agent.Context) (resp agent.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("agent panic", zap.Any("panic", rec))
			resp = agent.Response{
				Text:      fallbackReply,
				ToolCalls: []tools.Call{},
				Intent:    agent.IntentUnknown,
			}
		}
	}()
	return agent.New(toolbox, recorder, h.log).ProcessMessage(ctx, message, convCtx)
}

// resolveConversation returns the caller's conversation when the id is
// present, well-formed, and theirs; in every other case it starts a
// fresh one rather than failing the chat.
func (h *Handler) resolveConversation(ctx context.Context, userID uuid.UUID, rawID string) (*conversations.Conversation, error) {
	if rawID != "" {
		id, err := uuid.Parse(rawID)
		if err == nil {
			conv, err := h.conversations.Get(ctx, id, userID)
			if err == nil {
				return conv, nil
			}
			h.log.Warn("conversation lookup failed, starting new one",
				zap.String("conversation_id", rawID),
				zap.Error(err),
			)
		}
	}
	return h.conversations.Create(ctx, userID, "")
}

func (h *Handler) loadContext(ctx context.Context, conversationID, userID uuid.UUID) agent.Context {
	msgs, err := h.conversations.RecentMessages(ctx, conversationID, userID, h.contextLimit)
	if err != nil {
		h.log.Warn("context load failed", zap.Error(err))
		return agent.Context{}
	}
	views := make([]agent.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, agent.MessageView{Role: m.Role, Content: m.Content})
	}
	return agent.BuildContext(views, h.contextLimit)
}

func assistantMetadata(resp agent.Response) map[string]interface{} {
	if len(resp.ToolCalls) == 0 {
		return map[string]interface{}{"intent": string(resp.Intent)}
	}
	calls := make([]interface{}, 0, len(resp.ToolCalls))
	for _, c := range resp.ToolCalls {
		calls = append(calls, map[string]interface{}{
			"tool_name": c.ToolName,
			"success":   c.Result.Success,
		})
	}
	return map[string]interface{}{
		"intent":     string(resp.Intent),
		"tool_calls": calls,
	}
}

// toolCallRecorder binds the audit trail to the message that triggered
// the tools.
type toolCallRecorder struct {
	store          conversationStore
	conversationID uuid.UUID
	messageID      uuid.UUID
	userID         uuid.UUID
}

func (r *toolCallRecorder) RecordToolCall(ctx context.Context, call tools.Call) error {
	return r.store.SaveToolCall(ctx, r.conversationID, r.messageID, r.userID, call.ToolName, call.Parameters, resultMap(call.Result))
}

func resultMap(res tools.Result) map[string]interface{} {
	out := map[string]interface{}{
		"success": res.Success,
		"message": res.Message,
	}
	if res.Error != "" {
		out["error"] = res.Error
	}
	if count, ok := res.Data["count"]; ok {
		out["count"] = count
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
