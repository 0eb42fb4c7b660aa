package remote

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// catalogAccept pins the session-list contract version.
const catalogAccept = "application/json; version=1"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User    *domain.Identity `json:"user"`
	Access  string           `json:"access"`
	Refresh string           `json:"refresh"`
}

type messageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type messageResponse struct {
	SessionID   string       `json:"session_id"`
	BotResponse *wireMessage `json:"bot_response"`
}

// wireID accepts both numeric and string identifiers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = wireID(n.String())
	return nil
}

type wireMessage struct {
	ID          wireID          `json:"id"`
	MessageType string          `json:"message_type"`
	Content     string          `json:"content"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (m wireMessage) toDomain() domain.Message {
	id := string(m.ID)
	if id == "" {
		id = uuid.NewString()
	}
	var meta json.RawMessage
	if t := bytes.TrimSpace(m.Metadata); len(t) > 0 && !bytes.Equal(t, []byte("null")) && !bytes.Equal(t, []byte("{}")) {
		meta = m.Metadata
	}
	return domain.Message{
		ID:        id,
		Role:      roleFromWire(m.MessageType),
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Metadata:  meta,
	}
}

func roleFromWire(t string) domain.Role {
	switch t {
	case "user":
		return domain.RoleUser
	case "system":
		return domain.RoleSystem
	default:
		return domain.RoleAssistant
	}
}

type wireSession struct {
	SessionID    string        `json:"session_id"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	MessageCount int           `json:"message_count"`
	Messages     []wireMessage `json:"messages"`
}

func (s wireSession) toDomain() domain.ConversationSession {
	msgs := make([]domain.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, m.toDomain())
	}
	return domain.ConversationSession{
		SessionID: s.SessionID,
		Messages:  msgs,
		State:     domain.SessionReady,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// sessionList is version 1 of the session-list contract. Sessions is a
// pointer so that a body without the key is detected as malformed.
type sessionList struct {
	Sessions *[]wireSession `json:"sessions"`
}
