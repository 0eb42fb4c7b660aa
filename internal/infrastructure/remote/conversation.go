package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopassist/shopchat/internal/core/domain"
	"github.com/shopassist/shopchat/internal/core/ports"
)

var _ ports.ConversationAPI = (*Client)(nil)

// SendMessage posts to /chatbot/message/.
func (c *Client) SendMessage(ctx context.Context, text, sessionID string) (*ports.Reply, error) {
	var out messageResponse
	err := c.do(ctx, request{
		op:     "send_message",
		method: http.MethodPost,
		path:   "/chatbot/message/",
		body:   messageRequest{Message: text, SessionID: sessionID},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	if out.SessionID == "" || out.BotResponse == nil {
		return nil, malformed("send_message", http.StatusOK, errors.New("missing session_id or bot_response"))
	}

	return &ports.Reply{SessionID: out.SessionID, BotResponse: out.BotResponse.toDomain()}, nil
}

// ListSessions fetches the session catalog.
func (c *Client) ListSessions(ctx context.Context) ([]domain.ConversationSession, error) {
	var out sessionList
	err := c.do(ctx, request{
		op:     "list_sessions",
		method: http.MethodGet,
		path:   "/chatbot/sessions/",
		out:    &out,
		header: http.Header{"Accept": []string{catalogAccept}},
	})
	if err != nil {
		return nil, err
	}
	if out.Sessions == nil {
		return nil, malformed("list_sessions", http.StatusOK, errors.New(`missing "sessions"`))
	}

	sessions := make([]domain.ConversationSession, 0, len(*out.Sessions))
	for _, s := range *out.Sessions {
		sessions = append(sessions, s.toDomain())
	}
	return sessions, nil
}

// GetSession fetches one session with its messages.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	var out wireSession
	err := c.do(ctx, request{
		op:     "get_session",
		method: http.MethodGet,
		path:   "/chatbot/sessions/" + url.PathEscape(sessionID) + "/",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	sess := out.toDomain()
	return &sess, nil
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, request{
		op:     "delete_session",
		method: http.MethodDelete,
		path:   "/chatbot/sessions/" + url.PathEscape(sessionID) + "/delete/",
	})
}

// ResetSession clears a session's history on the server.
func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, request{
		op:     "reset_session",
		method: http.MethodPost,
		path:   "/chatbot/sessions/" + url.PathEscape(sessionID) + "/reset/",
	})
}
