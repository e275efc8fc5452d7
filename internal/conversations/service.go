package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("conversation not found")

// Service owns conversation, message and tool-call persistence. Every
// method is scoped to the owning user.
type Service struct {
	db  *sql.DB
	log *zap.Logger
}

func NewService(db *sql.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log.Named("conversations")}
}

// Create starts a new active conversation. An empty title gets a
// timestamped default.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, title string) (*Conversation, error) {
	if title == "" {
		title = "Conversation on " + time.Now().UTC().Format("2006-01-02 15:04")
	}

	c := Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
		Status: StatusActive,
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO conversations (id, user_id, title, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING started_at, last_message_at`,
		c.ID, c.UserID, c.Title, c.Status,
	)
	if err := row.Scan(&c.StartedAt, &c.LastMessageAt); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &c, nil
}

// Get returns the conversation if it exists and belongs to the user.
func (s *Service) Get(ctx context.Context, conversationID, userID uuid.UUID) (*Conversation, error) {
	var c Conversation
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, status, started_at, last_message_at
		 FROM conversations WHERE id=$1 AND user_id=$2`,
		conversationID, userID,
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &c.StartedAt, &c.LastMessageAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// List returns the user's conversations, most recently active first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, statusFilter string, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, user_id, title, status, started_at, last_message_at
	          FROM conversations WHERE user_id=$1`
	args := []interface{}{userID}
	if statusFilter != "" {
		query += ` AND status=$2`
		args = append(args, statusFilter)
	}
	query += fmt.Sprintf(` ORDER BY last_message_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Status, &c.StartedAt, &c.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddMessage appends a message to a conversation the user owns and
// bumps the conversation's last_message_at.
func (s *Service) AddMessage(ctx context.Context, conversationID, userID uuid.UUID, role, content string, metadata map[string]interface{}) (*Message, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal message metadata: %w", err)
	}

	m := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (id, conversation_id, user_id, role, content, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING timestamp`,
		m.ID, m.ConversationID, m.UserID, m.Role, m.Content, meta,
	)
	if err := row.Scan(&m.Timestamp); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_at=NOW() WHERE id=$1`,
		conversationID,
	); err != nil {
		s.log.Warn("bump last_message_at failed", zap.Error(err))
	}

	return &m, nil
}

// Messages returns a conversation's messages oldest first.
func (s *Service) Messages(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]Message, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, metadata, timestamp
		 FROM messages
		 WHERE conversation_id=$1
		 ORDER BY timestamp ASC
		 LIMIT $2 OFFSET $3`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var meta []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &meta, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &m.Metadata)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentMessages returns the last limit messages of a conversation,
// oldest to newest. This is the projection the agent's conversation
// context is built from.
func (s *Service) RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int) ([]Message, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, timestamp FROM (
		     SELECT id, conversation_id, user_id, role, content, timestamp
		     FROM messages
		     WHERE conversation_id=$1
		     ORDER BY timestamp DESC
		     LIMIT $2
		 ) recent ORDER BY timestamp ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Rename updates the conversation title.
func (s *Service) Rename(ctx context.Context, conversationID, userID uuid.UUID, title string) (*Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title=$1 WHERE id=$2 AND user_id=$3`,
		title, conversationID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("rename conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, conversationID, userID)
}

// Archive moves the conversation to the archived status.
func (s *Service) Archive(ctx context.Context, conversationID, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status=$1 WHERE id=$2 AND user_id=$3`,
		StatusArchived, conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToolCalls returns the audit trail of tool invocations recorded
// against a conversation, oldest first.
func (s *Service) ToolCalls(ctx context.Context, conversationID, userID uuid.UUID) ([]ToolCall, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, message_id, user_id, tool_name, parameters, result, timestamp
		 FROM tool_calls
		 WHERE conversation_id=$1
		 ORDER BY timestamp ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}
	defer rows.Close()

	var out []ToolCall
	for rows.Next() {
		var tc ToolCall
		var params, result []byte
		if err := rows.Scan(&tc.ID, &tc.ConversationID, &tc.MessageID, &tc.UserID, &tc.ToolName, &params, &result, &tc.Timestamp); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		if len(params) > 0 {
			_ = json.Unmarshal(params, &tc.Parameters)
		}
		if len(result) > 0 {
			_ = json.Unmarshal(result, &tc.Result)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// SaveToolCall records a tool invocation against a conversation and the
// message that triggered it. Callers treat failures as non-fatal.
func (s *Service) SaveToolCall(ctx context.Context, conversationID, messageID, userID uuid.UUID, toolName string, parameters, result map[string]interface{}) error {
	params, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Errorf("marshal tool parameters: %w", err)
	}
	res, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal tool result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, conversation_id, message_id, user_id, tool_name, parameters, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), conversationID, messageID, userID, toolName, params, res,
	)
	if err != nil {
		return fmt.Errorf("save tool call: %w", err)
	}
	return nil
}
