package conversations

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"-"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type Message struct {
	ID             uuid.UUID              `json:"id"`
	ConversationID uuid.UUID              `json:"conversation_id"`
	UserID         uuid.UUID              `json:"-"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// ToolCall is the audit record of a single tool invocation made by the
// agent while handling a message.
type ToolCall struct {
	ID             uuid.UUID              `json:"id"`
	ConversationID uuid.UUID              `json:"conversation_id"`
	MessageID      uuid.UUID              `json:"message_id"`
	UserID         uuid.UUID              `json:"-"`
	ToolName       string                 `json:"tool_name"`
	Parameters     map[string]interface{} `json:"parameters"`
	Result         map[string]interface{} `json:"result"`
	Timestamp      time.Time              `json:"timestamp"`
}
