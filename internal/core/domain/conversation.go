package domain

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionState is the lifecycle state of the active conversation.
type SessionState string

const (
	SessionDraft   SessionState = "draft"
	SessionPending SessionState = "pending"
	SessionReady   SessionState = "ready"
	SessionFailed  SessionState = "failed"
)

// ApologyMessage is appended in place of an assistant reply when a send fails.
const ApologyMessage = "Sorry, I encountered an error. Please try again."

// Message is a single immutable entry of a conversation.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ConversationSession is one conversation as seen by the client. An empty
// SessionID marks a draft that the server has not acknowledged yet.
type ConversationSession struct {
	// LocalKey distinguishes client-side sessions, drafts included. It is
	// never sent to the server.
	LocalKey  string
	SessionID string
	Messages  []Message
	State     SessionState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDraft reports whether the server has not assigned an id yet.
func (s *ConversationSession) IsDraft() bool { return s.SessionID == "" }

// Clone returns a deep copy safe to hand to readers.
func (s *ConversationSession) Clone() *ConversationSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// HasMessage reports whether a message with id is already present.
func (s *ConversationSession) HasMessage(id string) bool {
	for _, m := range s.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// SessionSummary is the catalog projection of a persisted session.
type SessionSummary struct {
	SessionID    string
	Preview      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// ConversationSnapshot is a copy of the conversation manager's observable state.
type ConversationSnapshot struct {
	Active    *ConversationSession
	Catalog   []SessionSummary
	Loading   bool
	LastError string
	Seq       uint64 // increases with every state change
}
