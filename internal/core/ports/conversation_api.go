package ports

import (
	"context"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// Reply is the success body of a sent message.
type Reply struct {
	SessionID   string
	BotResponse domain.Message
}

// ConversationAPI is the remote conversational-reply collaborator.
type ConversationAPI interface {
	// SendMessage posts text; an empty sessionID lets the server originate one.
	SendMessage(ctx context.Context, text, sessionID string) (*Reply, error)
	ListSessions(ctx context.Context) ([]domain.ConversationSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) error
}
