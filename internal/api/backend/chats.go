package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	MessageUser = "user"
	MessageBot  = "bot"
)

type ChatMessage struct {
	ID        int64
	Type      string
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
}

type ChatSession struct {
	ID        int64
	SessionID string
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []ChatMessage
}

// Exchange is the outcome of one user message.
type Exchange struct {
	SessionID  string
	User       ChatMessage
	Bot        ChatMessage
	Intent     string
	Confidence float64
}

// Chats stores conversations in memory, scoped per user.
type Chats struct {
	now func() time.Time

	mu        sync.Mutex
	nextSess int64
	nextMsg  int64
	sessions map[string]*ChatSession
}

func NewChats() *Chats {
	return &Chats{
		now:      time.Now,
		nextSess: 1,
		nextMsg:  1,
		sessions: make(map[string]*ChatSession),
	}
}

// Send records text and a canned reply. An unknown sessionID creates a
// session with that id; an empty one gets a fresh UUID.
func (c *Chats) Send(_ context.Context, userID int64, text, sessionID string) (*Exchange, error) {
	reply := Respond(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess, ok := c.sessions[sessionID]
	switch {
	case ok && sess.UserID != userID:
		return nil, ErrSessionNotFound
	case !ok:
		sess = c.createLocked(userID, sessionID)
	}

	user := c.appendLocked(sess, MessageUser, text, nil)
	bot := c.appendLocked(sess, MessageBot, reply.Content, reply.Metadata)

	return &Exchange{
		SessionID:  sess.SessionID,
		User:       user,
		Bot:        bot,
		Intent:     reply.Intent,
		Confidence: reply.Confidence,
	}, nil
}

// List returns the user's sessions, most recently updated first.
func (c *Chats) List(_ context.Context, userID int64) []ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ChatSession, 0)
	for _, s := range c.sessions {
		if s.UserID == userID {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (c *Chats) Get(_ context.Context, userID int64, sessionID string) (*ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.ownedLocked(userID, sessionID)
	if err != nil {
		return nil, err
	}
	out := cloneSession(s)
	return &out, nil
}

// Reset clears the conversation and seeds a greeting.
func (c *Chats) Reset(_ context.Context, userID int64, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.ownedLocked(userID, sessionID)
	if err != nil {
		return err
	}
	s.Messages = nil
	c.appendLocked(s, MessageBot, greetingReply, map[string]any{"intent": "greeting", "system": "reset"})
	return nil
}

func (c *Chats) Delete(_ context.Context, userID int64, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.ownedLocked(userID, sessionID); err != nil {
		return err
	}
	delete(c.sessions, sessionID)
	return nil
}

func (c *Chats) ownedLocked(userID int64, sessionID string) (*ChatSession, error) {
	s, ok := c.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (c *Chats) createLocked(userID int64, sessionID string) *ChatSession {
	now := c.now().UTC()
	s := &ChatSession{
		ID:        c.nextSess,
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.nextSess++
	c.sessions[sessionID] = s
	return s
}

func (c *Chats) appendLocked(s *ChatSession, kind, content string, metadata map[string]any) ChatMessage {
	now := c.now().UTC()
	m := ChatMessage{
		ID:        c.nextMsg,
		Type:      kind,
		Content:   content,
		Metadata:  metadata,
		Timestamp: now,
	}
	c.nextMsg++
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = now
	return m
}

func cloneSession(s *ChatSession) ChatSession {
	out := *s
	out.Messages = append([]ChatMessage(nil), s.Messages...)
	return out
}
