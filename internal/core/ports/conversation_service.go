package ports

import (
	"context"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// ConversationService is the conversation session manager.
type ConversationService interface {
	StartDraft()
	Send(ctx context.Context, text string) error
	RefreshCatalog(ctx context.Context) error
	OpenSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) error
	Snapshot() domain.ConversationSnapshot
	Subscribe(fn func(domain.ConversationSnapshot)) (unsubscribe func())
}
